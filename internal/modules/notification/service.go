package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rideway/internal/auth"
	"rideway/internal/email"
	"rideway/internal/kafka"
	"rideway/internal/logger"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

var ErrNotFound = errors.New("notification not found")

type Store interface {
	Insert(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID types.ID, onlyUnread bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, userID types.ID) (int, error)
	MarkRead(ctx context.Context, userID, id types.ID) error
	MarkAllRead(ctx context.Context, userID types.ID) error
	Delete(ctx context.Context, userID, id types.ID) error
}

// Users resolves recipients and their delivery preferences.
type Users interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
}

type Service struct {
	store Store
	users Users
	mail  email.Sender
	log   logger.Logger
}

func NewService(store Store, users Users, mail email.Sender, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, users: users, mail: mail, log: log}
}

// Deliver persists the notification and emails it when the recipient has
// email delivery switched on. In-app rows are written regardless; the
// preference only gates outbound channels.
func (s *Service) Deliver(ctx context.Context, ev kafka.NotificationEvent) error {
	n := &Notification{
		ID:        types.ID(uuid.NewString()),
		UserID:    types.ID(ev.UserID),
		Kind:      ev.Kind,
		Title:     ev.Title,
		Body:      ev.Body,
		BookingID: types.ID(ev.BookingID),
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return err
	}

	u, err := s.users.Get(ctx, n.UserID)
	if err != nil {
		s.log.Warn("notification recipient lookup failed", logger.String("user_id", ev.UserID), logger.Error(err))
		return nil
	}
	if u.Preferences.EmailNotifications && s.mail != nil {
		if err := s.mail.Send(ctx, u.Email, n.Title, n.Body); err != nil {
			s.log.Warn("notification email failed", logger.String("user_id", ev.UserID), logger.Error(err))
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, ident auth.Identity, onlyUnread bool, limit, offset int) ([]Notification, error) {
	return s.store.List(ctx, ident.UserID, onlyUnread, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, ident auth.Identity) (int, error) {
	return s.store.CountUnread(ctx, ident.UserID)
}

func (s *Service) MarkRead(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.MarkRead(ctx, ident.UserID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, ident auth.Identity) error {
	return s.store.MarkAllRead(ctx, ident.UserID)
}

func (s *Service) Delete(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.Delete(ctx, ident.UserID, id)
}
