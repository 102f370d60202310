package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/types"
)

// PGStore is the PostgreSQL user store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `
	id, email, password_hash, first_name, last_name, phone, role, status,
	avatar_url, email_verified,
	license_number, vehicle_make, vehicle_model, vehicle_year, vehicle_color, vehicle_plate, vehicle_type, capacity, driver_verified,
	pref_email, pref_sms, pref_push, language, currency, theme,
	total_bookings, completed_rides, cancelled_rides, total_spent, rating,
	failed_logins, locked_until, last_login_at, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, u *User, verifyToken string) error {
	d := u.Driver
	if d == nil {
		d = &DriverInfo{}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, phone, role, status,
			verify_token,
			license_number, vehicle_make, vehicle_model, vehicle_year, vehicle_color, vehicle_plate, vehicle_type, capacity,
			pref_email, pref_sms, pref_push, language, currency, theme,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9,
			$10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23,
			$24, $25
		)`,
		string(u.ID), u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.Status,
		verifyToken,
		d.LicenseNumber, d.VehicleMake, d.VehicleModel, d.VehicleYear, d.VehicleColor, d.VehiclePlate, d.VehicleType, d.Capacity,
		u.Preferences.EmailNotifications, u.Preferences.SMSNotifications, u.Preferences.PushNotifications,
		u.Preferences.Language, u.Preferences.Currency, u.Preferences.Theme,
		u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "phone") {
			return ErrPhoneTaken
		}
		return ErrEmailTaken
	}
	return err
}

func (s *PGStore) GetByID(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, string(id))
	return scanUser(row)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PGStore) SetLoginFailure(ctx context.Context, id types.ID, attempts int, lockedUntil *time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET failed_logins = $1, locked_until = $2, updated_at = NOW()
		WHERE id = $3`,
		attempts, lockedUntil, string(id),
	)
	return err
}

func (s *PGStore) ResetLoginFailures(ctx context.Context, id types.ID, lastLogin time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET failed_logins = 0, locked_until = NULL, last_login_at = $1, updated_at = NOW()
		WHERE id = $2`,
		lastLogin, string(id),
	)
	return err
}

func (s *PGStore) MarkEmailVerified(ctx context.Context, token string) (types.ID, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE users
		SET email_verified = TRUE, verify_token = '', updated_at = NOW()
		WHERE verify_token = $1 AND verify_token <> ''
		RETURNING id`, token)
	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidToken
	}
	return types.ID(id), err
}

func (s *PGStore) SetResetToken(ctx context.Context, id types.ID, token string, expires time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET reset_token = $1, reset_expires = $2, updated_at = NOW()
		WHERE id = $3`,
		token, expires, string(id),
	)
	return err
}

func (s *PGStore) GetByResetToken(ctx context.Context, token string) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_token = $1 AND reset_token <> '' AND reset_expires > NOW()`, token)
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

// SetPassword also invalidates any outstanding reset token and clears the
// lockout counter.
func (s *PGStore) SetPassword(ctx context.Context, id types.ID, hash string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1,
		    reset_token = '',
		    reset_expires = NULL,
		    failed_logins = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $2`,
		hash, string(id),
	)
	return err
}

func (s *PGStore) UpdateProfile(ctx context.Context, id types.ID, firstName, lastName, phone string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, updated_at = NOW()
		WHERE id = $4`,
		firstName, lastName, phone, string(id),
	)
	return err
}

func (s *PGStore) UpdatePreferences(ctx context.Context, id types.ID, p Preferences) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET pref_email = $1, pref_sms = $2, pref_push = $3, language = $4, currency = $5, theme = $6, updated_at = NOW()
		WHERE id = $7`,
		p.EmailNotifications, p.SMSNotifications, p.PushNotifications, p.Language, p.Currency, p.Theme, string(id),
	)
	return err
}

func (s *PGStore) SetAvatar(ctx context.Context, id types.ID, url string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET avatar_url = $1, updated_at = NOW() WHERE id = $2`,
		url, string(id))
	return err
}

func (s *PGStore) SetStatus(ctx context.Context, id types.ID, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, string(id))
	return err
}

func (s *PGStore) SetDriverInfo(ctx context.Context, id types.ID, d DriverInfo) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET license_number = $1, vehicle_make = $2, vehicle_model = $3,
		    vehicle_year = $4, vehicle_color = $5, vehicle_plate = $6, vehicle_type = $7,
		    capacity = $8, updated_at = NOW()
		WHERE id = $9`,
		d.LicenseNumber, d.VehicleMake, d.VehicleModel, d.VehicleYear, d.VehicleColor, d.VehiclePlate, d.VehicleType, d.Capacity,
		string(id),
	)
	return err
}

func (s *PGStore) IncrementBookings(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET total_bookings = total_bookings + 1, updated_at = NOW()
		WHERE id = $1`, string(id))
	return err
}

func (s *PGStore) ApplyCompletedRide(ctx context.Context, id types.ID, fareTotal float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET completed_rides = completed_rides + 1,
		    total_spent = ROUND((total_spent + $1)::numeric, 2),
		    updated_at = NOW()
		WHERE id = $2`,
		fareTotal, string(id))
	return err
}

func (s *PGStore) ApplyCancelledRide(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET cancelled_rides = cancelled_rides + 1, updated_at = NOW()
		WHERE id = $1`, string(id))
	return err
}

func (s *PGStore) SetDriverRating(ctx context.Context, id types.ID, average float64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET rating = $1, updated_at = NOW() WHERE id = $2`,
		average, string(id))
	return err
}

// Saved addresses. At most one row per user has is_default; writes that
// touch the flag run in a transaction.

func (s *PGStore) ListAddresses(ctx context.Context, userID types.ID) ([]Address, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, label, street, city, state, zip, country, lat, lng, is_default, created_at
		FROM user_addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Country,
			&a.Coordinates.Lat, &a.Coordinates.Lng, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) AddAddress(ctx context.Context, a *Address) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_addresses WHERE user_id = $1`, string(a.UserID)).Scan(&existing); err != nil {
		return err
	}
	if existing == 0 {
		a.IsDefault = true
	} else if a.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE user_addresses SET is_default = FALSE WHERE user_id = $1`, string(a.UserID)); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_addresses (id, user_id, label, street, city, state, zip, country, lat, lng, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(a.ID), string(a.UserID), a.Label, a.Street, a.City, a.State, a.ZipCode, a.Country,
		a.Coordinates.Lat, a.Coordinates.Lng, a.IsDefault, a.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdateAddress(ctx context.Context, a *Address) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_addresses
		SET label = $1, street = $2, city = $3, state = $4, zip = $5, country = $6, lat = $7, lng = $8
		WHERE id = $9 AND user_id = $10`,
		a.Label, a.Street, a.City, a.State, a.ZipCode, a.Country,
		a.Coordinates.Lat, a.Coordinates.Lng,
		string(a.ID), string(a.UserID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAddress removes the row and, when it held the default flag,
// promotes the newest remaining address.
func (s *PGStore) DeleteAddress(ctx context.Context, userID, id types.ID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var wasDefault bool
	err = tx.QueryRow(ctx, `
		DELETE FROM user_addresses
		WHERE id = $1 AND user_id = $2
		RETURNING is_default`, string(id), string(userID)).Scan(&wasDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if wasDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE user_addresses SET is_default = TRUE
			WHERE id = (
				SELECT id FROM user_addresses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1
			)`, string(userID)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) SetDefaultAddress(ctx context.Context, userID, id types.ID) error {
	return s.setDefault(ctx, "user_addresses", userID, id)
}

// Stored payment methods. Same single-default discipline as addresses.

func (s *PGStore) ListPaymentMethods(ctx context.Context, userID types.ID) ([]PaymentMethod, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, brand, last4, expiry_month, expiry_year, is_default, created_at
		FROM user_payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.Type, &m.Brand, &m.Last4,
			&m.ExpiryMonth, &m.ExpiryYear, &m.IsDefault, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) AddPaymentMethod(ctx context.Context, m *PaymentMethod) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_payment_methods WHERE user_id = $1`, string(m.UserID)).Scan(&existing); err != nil {
		return err
	}
	if existing == 0 {
		m.IsDefault = true
	} else if m.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE user_payment_methods SET is_default = FALSE WHERE user_id = $1`, string(m.UserID)); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_payment_methods (id, user_id, type, brand, last4, expiry_month, expiry_year, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(m.ID), string(m.UserID), m.Type, m.Brand, m.Last4,
		m.ExpiryMonth, m.ExpiryYear, m.IsDefault, m.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_payment_methods
		SET type = $1, brand = $2, last4 = $3, expiry_month = $4, expiry_year = $5
		WHERE id = $6 AND user_id = $7`,
		m.Type, m.Brand, m.Last4, m.ExpiryMonth, m.ExpiryYear,
		string(m.ID), string(m.UserID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeletePaymentMethod(ctx context.Context, userID, id types.ID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var wasDefault bool
	err = tx.QueryRow(ctx, `
		DELETE FROM user_payment_methods
		WHERE id = $1 AND user_id = $2
		RETURNING is_default`, string(id), string(userID)).Scan(&wasDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if wasDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE user_payment_methods SET is_default = TRUE
			WHERE id = (
				SELECT id FROM user_payment_methods WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1
			)`, string(userID)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) SetDefaultPaymentMethod(ctx context.Context, userID, id types.ID) error {
	return s.setDefault(ctx, "user_payment_methods", userID, id)
}

func (s *PGStore) setDefault(ctx context.Context, table string, userID, id types.ID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE `+table+` SET is_default = FALSE WHERE user_id = $1`, string(userID)); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE `+table+` SET is_default = TRUE WHERE id = $1 AND user_id = $2`,
		string(id), string(userID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var d DriverInfo
	var lockedUntil, lastLogin sql.NullTime

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.Status,
		&u.AvatarURL, &u.EmailVerified,
		&d.LicenseNumber, &d.VehicleMake, &d.VehicleModel, &d.VehicleYear, &d.VehicleColor, &d.VehiclePlate, &d.VehicleType, &d.Capacity, &d.Verified,
		&u.Preferences.EmailNotifications, &u.Preferences.SMSNotifications, &u.Preferences.PushNotifications,
		&u.Preferences.Language, &u.Preferences.Currency, &u.Preferences.Theme,
		&u.Stats.TotalBookings, &u.Stats.CompletedRides, &u.Stats.CancelledRides, &u.Stats.TotalSpent, &u.Stats.Rating,
		&u.FailedLogins, &lockedUntil, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if d.LicenseNumber != "" {
		u.Driver = &d
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}
