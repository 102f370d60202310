// Concurrency tests for booking state transitions (run with -race).
package booking

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/auth"
	"rideway/internal/types"
)

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("RIDEWAY_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDEWAY_TEST_DSN not set; skipping DB-backed race tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_status_events, booking_route_points, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPGStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.up.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func mustCreateBooking(t *testing.T, svc *Service, riderID types.ID) types.ID {
	t.Helper()
	b, err := svc.Create(context.Background(),
		auth.Identity{UserID: riderID, Role: auth.RoleUser},
		CreateCommand{
			Pickup:        Stop{Address: "1 Pickup Way", Coordinates: types.Point{Lat: 40.7128, Lng: -74.0060}},
			Destination:   Stop{Address: "2 Dropoff Ave", Coordinates: types.Point{Lat: 40.7306, Lng: -73.9352}},
			ScheduledTime: time.Now().Add(4 * time.Hour),
			VehicleType:   "standard",
			Passengers:    1,
			PaymentMethod: PayMethodCard,
		})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b.ID
}

func TestConcurrentAssignSameBooking(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewService(store, nil, nil, nil, nil, "", nil)

	bookingID := mustCreateBooking(t, svc, "r_multi_assign")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		ident := auth.Identity{UserID: types.ID(fmt.Sprintf("d%d", i)), Role: auth.RoleDriver}
		wg.Add(1)
		go func(ident auth.Identity) {
			defer wg.Done()
			_, err := svc.Assign(ctx, ident, bookingID)
			errs <- err
		}(ident)
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidState {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful assignment, got %d", success)
	}

	b, err := store.Get(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.Status != StatusDriverAssigned {
		t.Fatalf("expected driver_assigned, got %s", b.Status)
	}
	if b.DriverID == nil {
		t.Fatal("expected a driver to be attached")
	}
}

func TestConcurrentAssignVsCancel(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewService(store, nil, nil, nil, nil, "", nil)

	bookingID := mustCreateBooking(t, svc, "r_assign_cancel")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Assign(ctx, auth.Identity{UserID: "d1", Role: auth.RoleDriver}, bookingID)
		errs <- err
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(ctx, auth.Identity{UserID: "r_assign_cancel", Role: auth.RoleUser},
			CancelCommand{BookingID: bookingID, Reason: "changed plans"})
		errs <- err
	}()

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidState {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success < 1 || success > 2 {
		t.Fatalf("expected 1 or 2 successes, got %d", success)
	}

	b, err := store.Get(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if success == 2 && b.Status != StatusCancelled {
		t.Fatalf("expected cancelled after assign+cancel, got %s", b.Status)
	}
	if success == 1 && b.Status != StatusDriverAssigned && b.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", b.Status)
	}
}

func TestConcurrentRatingWritesOnce(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewService(store, nil, nil, nil, nil, "", nil)

	riderID := types.ID("r_rate_once")
	bookingID := mustCreateBooking(t, svc, riderID)

	driver := auth.Identity{UserID: "d_rate", Role: auth.RoleDriver}
	if _, err := svc.Assign(ctx, driver, bookingID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, next := range []Status{StatusDriverEnRoute, StatusArrived, StatusInProgress, StatusCompleted} {
		if _, err := svc.Advance(ctx, driver, AdvanceCommand{BookingID: bookingID, Status: next}); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	const attempts = 4
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		stars := 2 + i%4
		wg.Add(1)
		go func(stars int) {
			defer wg.Done()
			_, err := svc.Rate(ctx, auth.Identity{UserID: riderID, Role: auth.RoleUser},
				RateCommand{BookingID: bookingID, Stars: stars})
			errs <- err
		}(stars)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrAlreadyRated {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 rating to land, got %d", success)
	}

	b, err := store.Get(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.RiderRating == nil {
		t.Fatal("expected a persisted rider rating")
	}
}
