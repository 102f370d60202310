package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rideway/internal/kafka"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context, userID types.ID, onlyUnread bool, limit, offset int) ([]Notification, error) {
	args := m.Called(ctx, userID, onlyUnread, limit, offset)
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockStore) CountUnread(ctx context.Context, userID types.ID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) MarkRead(ctx context.Context, userID, id types.ID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockStore) MarkAllRead(ctx context.Context, userID types.ID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, userID, id types.ID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Get(ctx context.Context, id types.ID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func TestDeliver_EmailsWhenOptedIn(t *testing.T) {
	store := &MockStore{}
	users := &MockUsers{}
	mail := &MockSender{}
	svc := NewService(store, users, mail, nil)

	store.On("Insert", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.UserID == "u1" && n.Kind == KindDriverAssigned && !n.Read
	})).Return(nil).Once()
	prefs := user.DefaultPreferences()
	users.On("Get", mock.Anything, types.ID("u1")).Return(
		&user.User{ID: "u1", Email: "u1@example.com", Preferences: prefs}, nil)
	mail.On("Send", mock.Anything, "u1@example.com", "Driver assigned", mock.Anything).Return(nil).Once()

	err := svc.Deliver(context.Background(), kafka.NotificationEvent{
		UserID: "u1", Kind: KindDriverAssigned, Title: "Driver assigned", Body: "On the way.",
	})
	assert.NoError(t, err)
	store.AssertExpectations(t)
	mail.AssertExpectations(t)
}

func TestDeliver_SkipsEmailWhenOptedOut(t *testing.T) {
	store := &MockStore{}
	users := &MockUsers{}
	mail := &MockSender{}
	svc := NewService(store, users, mail, nil)

	store.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()
	prefs := user.DefaultPreferences()
	prefs.EmailNotifications = false
	users.On("Get", mock.Anything, types.ID("u1")).Return(
		&user.User{ID: "u1", Email: "u1@example.com", Preferences: prefs}, nil)

	err := svc.Deliver(context.Background(), kafka.NotificationEvent{
		UserID: "u1", Kind: KindRideCompleted, Title: "Ride completed", Body: "Thanks.",
	})
	assert.NoError(t, err)
	// the in-app row is still written, only the email channel is gated
	store.AssertExpectations(t)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFromBookingEvent(t *testing.T) {
	scheduled := time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC)

	t.Run("driver assigned notifies both sides", func(t *testing.T) {
		evs := FromBookingEvent(kafka.BookingEvent{
			Type: kafka.EventDriverAssigned, BookingID: "b1",
			RiderID: "r1", DriverID: "d1", VehicleType: "standard", ScheduledTime: scheduled,
		})
		assert.Len(t, evs, 2)
		assert.Equal(t, "r1", evs[0].UserID)
		assert.Equal(t, "d1", evs[1].UserID)
		for _, ev := range evs {
			assert.Equal(t, KindDriverAssigned, ev.Kind)
			assert.Equal(t, "b1", ev.BookingID)
		}
	})

	t.Run("cancellation mentions the refund", func(t *testing.T) {
		evs := FromBookingEvent(kafka.BookingEvent{
			Type: kafka.EventBookingCancelled, BookingID: "b1", RiderID: "r1", RefundAmount: 80,
		})
		assert.Len(t, evs, 1)
		assert.Contains(t, evs[0].Body, "$80.00")
	})

	t.Run("unassigned cancellation has no driver notification", func(t *testing.T) {
		evs := FromBookingEvent(kafka.BookingEvent{
			Type: kafka.EventBookingCancelled, BookingID: "b1", RiderID: "r1",
		})
		assert.Len(t, evs, 1)
		assert.NotContains(t, evs[0].Body, "refund")
	})

	t.Run("unknown event maps to nothing", func(t *testing.T) {
		assert.Empty(t, FromBookingEvent(kafka.BookingEvent{Type: "mystery"}))
	})
}
