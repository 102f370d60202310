package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/types"
)

// PGStore is the PostgreSQL transaction ledger.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, t *Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (
			id, booking_id, user_id, type, amount, currency, method, status, gateway_ref, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(t.ID), string(t.BookingID), string(t.UserID),
		t.Type, t.Amount, t.Currency, t.Method, t.Status, t.GatewayRef, t.Reason, t.CreatedAt,
	)
	return err
}

func (s *PGStore) ListByUser(ctx context.Context, userID types.ID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, user_id, type, amount, currency, method, status, gateway_ref, reason, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		string(userID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PGStore) ListByBooking(ctx context.Context, bookingID types.ID) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, user_id, type, amount, currency, method, status, gateway_ref, reason, created_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at ASC`,
		string(bookingID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PGStore) LastChargeRef(ctx context.Context, bookingID types.ID) (string, error) {
	row := s.db.QueryRow(ctx, `
		SELECT gateway_ref
		FROM payments
		WHERE booking_id = $1 AND type = 'charge' AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1`, string(bookingID))
	var ref string
	err := row.Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return ref, err
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.BookingID, &t.UserID, &t.Type, &t.Amount, &t.Currency,
			&t.Method, &t.Status, &t.GatewayRef, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
