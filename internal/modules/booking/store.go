package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/types"
)

// PGStore is the PostgreSQL booking store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const bookingColumns = `
	id, rider_id, driver_id, status, status_version,
	pickup_address, pickup_city, pickup_state, pickup_zip, pickup_country,
	pickup_lat, pickup_lng, pickup_instructions,
	dest_address, dest_city, dest_state, dest_zip, dest_country,
	dest_lat, dest_lng, dest_instructions,
	scheduled_time, vehicle_type, passengers, special_requests,
	base_fare, distance_km, duration_min, vehicle_multiplier, surge_multiplier,
	subtotal, taxes, total, currency,
	payment_method, payment_status, payment_transaction_id, paid_at,
	started_at, ended_at, actual_distance_km, actual_duration_min,
	rider_rating_stars, rider_rating_comment, rider_rated_at,
	driver_rating_stars, driver_rating_comment, driver_rated_at,
	cancel_reason, cancelled_by, cancelled_at, refund_amount,
	app_version, platform, device_info, ip_address,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, rider_id, driver_id, status, status_version,
			pickup_address, pickup_city, pickup_state, pickup_zip, pickup_country,
			pickup_lat, pickup_lng, pickup_instructions,
			dest_address, dest_city, dest_state, dest_zip, dest_country,
			dest_lat, dest_lng, dest_instructions,
			scheduled_time, vehicle_type, passengers, special_requests,
			base_fare, distance_km, duration_min, vehicle_multiplier, surge_multiplier,
			subtotal, taxes, total, currency,
			payment_method, payment_status,
			app_version, platform, device_info, ip_address,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21,
			$22, $23, $24, $25,
			$26, $27, $28, $29, $30,
			$31, $32, $33, $34,
			$35, $36,
			$37, $38, $39, $40,
			$41, $42
		)`,
		string(b.ID),
		string(b.RiderID),
		toStringPtr(b.DriverID),
		string(b.Status),
		b.StatusVersion,
		b.Pickup.Address, b.Pickup.City, b.Pickup.State, b.Pickup.ZipCode, b.Pickup.Country,
		b.Pickup.Coordinates.Lat, b.Pickup.Coordinates.Lng, b.Pickup.Instructions,
		b.Destination.Address, b.Destination.City, b.Destination.State, b.Destination.ZipCode, b.Destination.Country,
		b.Destination.Coordinates.Lat, b.Destination.Coordinates.Lng, b.Destination.Instructions,
		b.ScheduledTime, b.VehicleType, b.Passengers, b.SpecialRequests,
		b.Fare.BaseFare, b.Fare.DistanceKm, b.Fare.DurationMin, b.Fare.VehicleMultiplier, b.Fare.SurgeMultiplier,
		b.Fare.Subtotal, b.Fare.Taxes, b.Fare.Total, b.Fare.Currency,
		b.Payment.Method, b.Payment.Status,
		b.Metadata.AppVersion, b.Metadata.Platform, b.Metadata.DeviceInfo, b.Metadata.IPAddress,
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT lat, lng, recorded_at
		FROM booking_route_points
		WHERE booking_id = $1
		ORDER BY recorded_at ASC`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p RoutePoint
		if err := rows.Scan(&p.Position.Lat, &p.Position.Lng, &p.RecordedAt); err != nil {
			return nil, err
		}
		b.Ride.Route = append(b.Ride.Route, p)
	}
	return b, rows.Err()
}

func (s *PGStore) ListByRider(ctx context.Context, riderID types.ID, f ListFilter) ([]Booking, error) {
	return s.list(ctx, "rider_id", riderID, f)
}

func (s *PGStore) ListByDriver(ctx context.Context, driverID types.ID, f ListFilter) ([]Booking, error) {
	return s.list(ctx, "driver_id", driverID, f)
}

func (s *PGStore) list(ctx context.Context, col string, id types.ID, f ListFilter) ([]Booking, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + col + ` = $1`
	args := []interface{}{string(id)}
	if f.Status != "" {
		q += ` AND status = $2`
		args = append(args, string(f.Status))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, f.Offset)

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// AssignDriver claims a confirmed, unassigned booking for driverID. The
// guard makes concurrent claims race on a single row update; exactly one
// caller sees true.
func (s *PGStore) AssignDriver(ctx context.Context, id, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET driver_id = $1,
		    status = 'driver_assigned',
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'confirmed' AND driver_id IS NULL`,
		string(driverID), string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus applies a compare-and-set transition. started_at and
// ended_at are stamped once and never overwritten.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW(),
		    started_at = CASE WHEN $1 = 'in_progress' AND started_at IS NULL THEN NOW() ELSE started_at END,
		    ended_at = CASE WHEN $1 = 'completed' AND ended_at IS NULL THEN NOW() ELSE ended_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetRideActuals(ctx context.Context, id types.ID, distanceKm, durationMin *float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET actual_distance_km = COALESCE($1, actual_distance_km),
		    actual_duration_min = COALESCE($2, actual_duration_min),
		    updated_at = NOW()
		WHERE id = $3`,
		distanceKm, durationMin, string(id),
	)
	return err
}

func (s *PGStore) SetCancellation(ctx context.Context, id types.ID, c Cancellation) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET cancel_reason = $1,
		    cancelled_by = $2,
		    cancelled_at = $3,
		    refund_amount = $4,
		    updated_at = NOW()
		WHERE id = $5`,
		c.Reason, c.CancelledBy, c.CancelledAt, c.RefundAmount, string(id),
	)
	return err
}

// SetPaymentStatus records the payment outcome on the booking row.
func (s *PGStore) SetPaymentStatus(ctx context.Context, id types.ID, status, transactionID string, paidAt *time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET payment_status = $1,
		    payment_transaction_id = COALESCE(NULLIF($2, ''), payment_transaction_id),
		    paid_at = COALESCE($3, paid_at),
		    updated_at = NOW()
		WHERE id = $4`,
		status, transactionID, paidAt, string(id),
	)
	return err
}

// SetRiderRating writes the rider's rating only if none exists yet.
func (s *PGStore) SetRiderRating(ctx context.Context, id types.ID, r Rating) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET rider_rating_stars = $1,
		    rider_rating_comment = $2,
		    rider_rated_at = $3,
		    updated_at = NOW()
		WHERE id = $4 AND rider_rating_stars IS NULL`,
		r.Stars, r.Comment, r.RatedAt, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) DriverRatingAverage(ctx context.Context, driverID types.ID) (float64, int, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(rider_rating_stars), 0)::float8, COUNT(rider_rating_stars)::int
		FROM bookings
		WHERE driver_id = $1 AND rider_rating_stars IS NOT NULL`,
		string(driverID),
	)
	var avg float64
	var n int
	if err := row.Scan(&avg, &n); err != nil {
		return 0, 0, err
	}
	return avg, n, nil
}

func (s *PGStore) AppendRoutePoint(ctx context.Context, id types.ID, p RoutePoint) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_route_points (booking_id, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4)`,
		string(id), p.Position.Lat, p.Position.Lng, p.RecordedAt,
	)
	return err
}

func (s *PGStore) AppendEvent(ctx context.Context, e *StatusEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_status_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *PGStore) EarningsSince(ctx context.Context, driverID types.ID, since time.Time) (Earnings, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)::float8, COUNT(*)::int
		FROM bookings
		WHERE driver_id = $1 AND status = 'completed' AND ended_at >= $2`,
		string(driverID), since,
	)
	var e Earnings
	if err := row.Scan(&e.Total, &e.Rides); err != nil {
		return Earnings{}, err
	}
	e.Total = round2(e.Total)
	if e.Rides > 0 {
		e.Average = round2(e.Total / float64(e.Rides))
	}
	return e, nil
}

// SweepNoShows flips stale unclaimed bookings to no_show and returns them.
func (s *PGStore) SweepNoShows(ctx context.Context, before time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE bookings
		SET status = 'no_show',
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE status = 'confirmed' AND driver_id IS NULL AND scheduled_time <= $1
		RETURNING `+bookingColumns,
		before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var driverID, txID, cancelReason, cancelledBy sql.NullString
	var paidAt, startedAt, endedAt, riderRatedAt, driverRatedAt, cancelledAt sql.NullTime
	var actualDistance, actualDuration, refundAmount sql.NullFloat64
	var riderStars, driverStars sql.NullInt32
	var riderComment, driverComment sql.NullString

	err := row.Scan(
		&b.ID, &b.RiderID, &driverID, &b.Status, &b.StatusVersion,
		&b.Pickup.Address, &b.Pickup.City, &b.Pickup.State, &b.Pickup.ZipCode, &b.Pickup.Country,
		&b.Pickup.Coordinates.Lat, &b.Pickup.Coordinates.Lng, &b.Pickup.Instructions,
		&b.Destination.Address, &b.Destination.City, &b.Destination.State, &b.Destination.ZipCode, &b.Destination.Country,
		&b.Destination.Coordinates.Lat, &b.Destination.Coordinates.Lng, &b.Destination.Instructions,
		&b.ScheduledTime, &b.VehicleType, &b.Passengers, &b.SpecialRequests,
		&b.Fare.BaseFare, &b.Fare.DistanceKm, &b.Fare.DurationMin, &b.Fare.VehicleMultiplier, &b.Fare.SurgeMultiplier,
		&b.Fare.Subtotal, &b.Fare.Taxes, &b.Fare.Total, &b.Fare.Currency,
		&b.Payment.Method, &b.Payment.Status, &txID, &paidAt,
		&startedAt, &endedAt, &actualDistance, &actualDuration,
		&riderStars, &riderComment, &riderRatedAt,
		&driverStars, &driverComment, &driverRatedAt,
		&cancelReason, &cancelledBy, &cancelledAt, &refundAmount,
		&b.Metadata.AppVersion, &b.Metadata.Platform, &b.Metadata.DeviceInfo, &b.Metadata.IPAddress,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		b.DriverID = &d
	}
	if txID.Valid {
		b.Payment.TransactionID = txID.String
	}
	b.Payment.PaidAt = toTimePtr(paidAt)
	b.Ride.StartedAt = toTimePtr(startedAt)
	b.Ride.EndedAt = toTimePtr(endedAt)
	b.Ride.ActualDistanceKm = toFloatPtr(actualDistance)
	b.Ride.ActualDurationMin = toFloatPtr(actualDuration)
	if riderStars.Valid {
		b.RiderRating = &Rating{Stars: int(riderStars.Int32), Comment: riderComment.String, RatedAt: riderRatedAt.Time}
	}
	if driverStars.Valid {
		b.DriverRating = &Rating{Stars: int(driverStars.Int32), Comment: driverComment.String, RatedAt: driverRatedAt.Time}
	}
	if cancelledAt.Valid {
		b.Cancellation = &Cancellation{
			Reason:       cancelReason.String,
			CancelledBy:  cancelledBy.String,
			CancelledAt:  cancelledAt.Time,
			RefundAmount: refundAmount.Float64,
		}
	}
	return &b, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func toFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
