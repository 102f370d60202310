package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/types"
)

// PGStore is the PostgreSQL notification store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, n *Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, booking_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(n.ID), string(n.UserID), n.Kind, n.Title, n.Body, string(n.BookingID), n.Read, n.CreatedAt,
	)
	return err
}

func (s *PGStore) List(ctx context.Context, userID types.ID, onlyUnread bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT id, user_id, kind, title, body, booking_id, read, created_at
		FROM notifications
		WHERE user_id = $1`
	if onlyUnread {
		q += ` AND read = FALSE`
	}
	q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, q, string(userID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.BookingID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PGStore) CountUnread(ctx context.Context, userID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		string(userID)).Scan(&n)
	return n, err
}

func (s *PGStore) MarkRead(ctx context.Context, userID, id types.ID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		string(id), string(userID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID types.ID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`,
		string(userID))
	return err
}

func (s *PGStore) Delete(ctx context.Context, userID, id types.ID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		string(id), string(userID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
