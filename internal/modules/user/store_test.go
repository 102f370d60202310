// DB-backed tests for the single-default discipline on saved addresses
// and payment methods.
package user

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/types"
)

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("RIDEWAY_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDEWAY_TEST_DSN not set; skipping DB-backed store tests")
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

	if _, err := db.Exec(ctx, "TRUNCATE TABLE user_addresses, user_payment_methods, users"); err != nil {
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

func mustAddAddress(t *testing.T, store *PGStore, userID types.ID, n int, isDefault bool) types.ID {
	t.Helper()
	a := &Address{
		ID:        types.ID(fmt.Sprintf("addr_%d", n)),
		UserID:    userID,
		Label:     fmt.Sprintf("place %d", n),
		Street:    fmt.Sprintf("%d Main St", n),
		IsDefault: isDefault,
		CreatedAt: time.Now().Add(time.Duration(n) * time.Second),
	}
	if err := store.AddAddress(context.Background(), a); err != nil {
		t.Fatalf("add address %d: %v", n, err)
	}
	return a.ID
}

func defaultAddress(t *testing.T, store *PGStore, userID types.ID) (types.ID, int) {
	t.Helper()
	addrs, err := store.ListAddresses(context.Background(), userID)
	if err != nil {
		t.Fatalf("list addresses: %v", err)
	}
	var id types.ID
	defaults := 0
	for _, a := range addrs {
		if a.IsDefault {
			defaults++
			id = a.ID
		}
	}
	return id, defaults
}

func TestAddressSingleDefault(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	userID := types.ID("u_addr")

	a1 := mustAddAddress(t, store, userID, 1, false)
	id, n := defaultAddress(t, store, userID)
	if n != 1 || id != a1 {
		t.Fatalf("first address should become the default, got %d defaults (%s)", n, id)
	}

	a2 := mustAddAddress(t, store, userID, 2, true)
	id, n = defaultAddress(t, store, userID)
	if n != 1 || id != a2 {
		t.Fatalf("adding with is_default should move the flag, got %d defaults (%s)", n, id)
	}

	a3 := mustAddAddress(t, store, userID, 3, false)
	if id, n = defaultAddress(t, store, userID); n != 1 || id != a2 {
		t.Fatalf("plain add should not touch the default, got %d defaults (%s)", n, id)
	}

	if err := store.SetDefaultAddress(ctx, userID, a3); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if id, n = defaultAddress(t, store, userID); n != 1 || id != a3 {
		t.Fatalf("set default should leave exactly one flag, got %d defaults (%s)", n, id)
	}

	// deleting the default promotes the newest remaining address
	if err := store.DeleteAddress(ctx, userID, a3); err != nil {
		t.Fatalf("delete default: %v", err)
	}
	if id, n = defaultAddress(t, store, userID); n != 1 || id != a2 {
		t.Fatalf("delete should promote the newest remaining, got %d defaults (%s)", n, id)
	}

	if err := store.DeleteAddress(ctx, userID, a1); err != nil {
		t.Fatalf("delete non-default: %v", err)
	}
	if id, n = defaultAddress(t, store, userID); n != 1 || id != a2 {
		t.Fatalf("deleting a non-default should change nothing, got %d defaults (%s)", n, id)
	}
}

func mustAddMethod(t *testing.T, store *PGStore, userID types.ID, n int, isDefault bool) types.ID {
	t.Helper()
	m := &PaymentMethod{
		ID:        types.ID(fmt.Sprintf("pm_%d", n)),
		UserID:    userID,
		Type:      "card",
		Brand:     "visa",
		Last4:     fmt.Sprintf("%04d", n),
		IsDefault: isDefault,
		CreatedAt: time.Now().Add(time.Duration(n) * time.Second),
	}
	if err := store.AddPaymentMethod(context.Background(), m); err != nil {
		t.Fatalf("add payment method %d: %v", n, err)
	}
	return m.ID
}

func defaultMethod(t *testing.T, store *PGStore, userID types.ID) (types.ID, int) {
	t.Helper()
	methods, err := store.ListPaymentMethods(context.Background(), userID)
	if err != nil {
		t.Fatalf("list payment methods: %v", err)
	}
	var id types.ID
	defaults := 0
	for _, m := range methods {
		if m.IsDefault {
			defaults++
			id = m.ID
		}
	}
	return id, defaults
}

func TestPaymentMethodSingleDefault(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	userID := types.ID("u_pm")

	m1 := mustAddMethod(t, store, userID, 1, false)
	id, n := defaultMethod(t, store, userID)
	if n != 1 || id != m1 {
		t.Fatalf("first method should become the default, got %d defaults (%s)", n, id)
	}

	m2 := mustAddMethod(t, store, userID, 2, true)
	if id, n = defaultMethod(t, store, userID); n != 1 || id != m2 {
		t.Fatalf("adding with is_default should move the flag, got %d defaults (%s)", n, id)
	}

	m3 := mustAddMethod(t, store, userID, 3, false)
	if err := store.SetDefaultPaymentMethod(ctx, userID, m1); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if id, n = defaultMethod(t, store, userID); n != 1 || id != m1 {
		t.Fatalf("set default should leave exactly one flag, got %d defaults (%s)", n, id)
	}

	if err := store.DeletePaymentMethod(ctx, userID, m1); err != nil {
		t.Fatalf("delete default: %v", err)
	}
	if id, n = defaultMethod(t, store, userID); n != 1 || id != m3 {
		t.Fatalf("delete should promote the newest remaining, got %d defaults (%s)", n, id)
	}

	if err := store.SetDefaultPaymentMethod(ctx, userID, "missing"); err != ErrNotFound {
		t.Fatalf("set default on a missing row: err = %v, want ErrNotFound", err)
	}
	if _, n = defaultMethod(t, store, userID); n != 1 {
		t.Fatalf("failed set default must not clear the flag, got %d defaults", n)
	}
}
