package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rideway/internal/auth"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, t *Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) ListByUser(ctx context.Context, userID types.ID, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockStore) ListByBooking(ctx context.Context, bookingID types.ID) ([]Transaction, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockStore) LastChargeRef(ctx context.Context, bookingID types.ID) (string, error) {
	args := m.Called(ctx, bookingID)
	return args.String(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, method string, amount float64, reference string) (string, error) {
	args := m.Called(ctx, method, amount, reference)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, gatewayRef string, amount float64) (string, error) {
	args := m.Called(ctx, gatewayRef, amount)
	return args.String(0), args.Error(1)
}

type MockBookingPayments struct {
	mock.Mock
}

func (m *MockBookingPayments) Get(ctx context.Context, id types.ID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingPayments) SetPaymentStatus(ctx context.Context, id types.ID, status, transactionID string, paidAt *time.Time) error {
	args := m.Called(ctx, id, status, transactionID, paidAt)
	return args.Error(0)
}

type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) ListPaymentMethods(ctx context.Context, userID types.ID) ([]user.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]user.PaymentMethod), args.Error(1)
}

func completedBooking(method string, total float64) *booking.Booking {
	b := &booking.Booking{ID: "b1", RiderID: "r1", Status: booking.StatusCompleted}
	b.Payment.Method = method
	b.Fare.Total = total
	b.Fare.Currency = "USD"
	return b
}

func TestChargeBooking_Card(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	bookings := &MockBookingPayments{}
	svc := NewService(store, gateway, bookings, nil, nil)

	gateway.On("Charge", mock.Anything, booking.PayMethodCard, 55.0, "b1").Return("sim_ch_1", nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Type == TypeCharge && tr.Status == StatusCompleted && tr.Amount == 55 && tr.GatewayRef == "sim_ch_1"
	})).Return(nil).Once()
	bookings.On("SetPaymentStatus", mock.Anything, types.ID("b1"), booking.PayStatusCompleted, "sim_ch_1", mock.Anything).Return(nil).Once()

	tr, err := svc.ChargeBooking(context.Background(), completedBooking(booking.PayMethodCard, 55))
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, tr.Status)
	store.AssertExpectations(t)
	gateway.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestChargeBooking_CashSkipsGateway(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	svc := NewService(store, gateway, nil, nil, nil)

	store.On("Insert", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Status == StatusCompleted && tr.GatewayRef == "cash"
	})).Return(nil).Once()

	_, err := svc.ChargeBooking(context.Background(), completedBooking(booking.PayMethodCash, 30))
	assert.NoError(t, err)
	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChargeBooking_DeclineRecordsFailure(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	bookings := &MockBookingPayments{}
	svc := NewService(store, gateway, bookings, nil, nil)

	gateway.On("Charge", mock.Anything, booking.PayMethodCard, 55.0, "b1").Return("", ErrGatewayDeclined).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Status == StatusFailed
	})).Return(nil).Once()
	bookings.On("SetPaymentStatus", mock.Anything, types.ID("b1"), booking.PayStatusFailed, "", (*time.Time)(nil)).Return(nil).Once()

	_, err := svc.ChargeBooking(context.Background(), completedBooking(booking.PayMethodCard, 55))
	assert.ErrorIs(t, err, ErrGatewayDeclined)
	store.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestRefundBooking(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	bookings := &MockBookingPayments{}
	svc := NewService(store, gateway, bookings, nil, nil)

	store.On("LastChargeRef", mock.Anything, types.ID("b1")).Return("sim_ch_1", nil).Once()
	gateway.On("Refund", mock.Anything, "sim_ch_1", 80.0).Return("sim_rf_1", nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Type == TypeRefund && tr.Amount == 80 && tr.Reason == "plans changed"
	})).Return(nil).Once()
	bookings.On("SetPaymentStatus", mock.Anything, types.ID("b1"), booking.PayStatusRefunded, "sim_rf_1", (*time.Time)(nil)).Return(nil).Once()

	err := svc.RefundBooking(context.Background(), completedBooking(booking.PayMethodCard, 100), 80, "plans changed")
	assert.NoError(t, err)
	store.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestRefundBooking_NeverCharged(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	bookings := &MockBookingPayments{}
	svc := NewService(store, gateway, bookings, nil, nil)

	store.On("LastChargeRef", mock.Anything, types.ID("b1")).Return("", ErrNotFound).Once()

	err := svc.RefundBooking(context.Background(), completedBooking(booking.PayMethodCard, 100), 80, "plans changed")
	assert.NoError(t, err)
	gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	bookings.AssertNotCalled(t, "SetPaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_DefaultWalletMethod(t *testing.T) {
	store := &MockStore{}
	gateway := &MockGateway{}
	bookings := &MockBookingPayments{}
	wallet := &MockWallet{}
	svc := NewService(store, gateway, bookings, wallet, nil)

	bookings.On("Get", mock.Anything, types.ID("b1")).Return(completedBooking(booking.PayMethodCash, 55), nil).Once()
	wallet.On("ListPaymentMethods", mock.Anything, types.ID("r1")).Return([]user.PaymentMethod{
		{ID: "m1", Type: booking.PayMethodPaypal},
		{ID: "m2", Type: booking.PayMethodCard, IsDefault: true},
	}, nil).Once()
	gateway.On("Charge", mock.Anything, booking.PayMethodCard, 55.0, "b1").Return("sim_ch_9", nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Method == booking.PayMethodCard && tr.Status == StatusCompleted
	})).Return(nil).Once()
	bookings.On("SetPaymentStatus", mock.Anything, types.ID("b1"), booking.PayStatusCompleted, "sim_ch_9", mock.Anything).Return(nil).Once()

	rider := auth.Identity{UserID: "r1", Role: auth.RoleUser}
	tr, err := svc.Process(context.Background(), rider, "b1", "")
	assert.NoError(t, err)
	assert.Equal(t, "sim_ch_9", tr.GatewayRef)
	wallet.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestProcess_Denied(t *testing.T) {
	bookings := &MockBookingPayments{}
	svc := NewService(&MockStore{}, &MockGateway{}, bookings, &MockWallet{}, nil)

	bookings.On("Get", mock.Anything, types.ID("b1")).Return(completedBooking(booking.PayMethodCard, 55), nil)

	_, err := svc.Process(context.Background(), auth.Identity{UserID: "someone-else", Role: auth.RoleUser}, "b1", "")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestProcess_UnknownMethod(t *testing.T) {
	bookings := &MockBookingPayments{}
	wallet := &MockWallet{}
	svc := NewService(&MockStore{}, &MockGateway{}, bookings, wallet, nil)

	bookings.On("Get", mock.Anything, types.ID("b1")).Return(completedBooking(booking.PayMethodCard, 55), nil)
	wallet.On("ListPaymentMethods", mock.Anything, types.ID("r1")).Return([]user.PaymentMethod{}, nil)

	_, err := svc.Process(context.Background(), auth.Identity{UserID: "r1", Role: auth.RoleUser}, "b1", "m9")
	assert.ErrorIs(t, err, ErrMethodNotFound)
}

func TestProcess_AlreadyPaid(t *testing.T) {
	bookings := &MockBookingPayments{}
	svc := NewService(&MockStore{}, &MockGateway{}, bookings, &MockWallet{}, nil)

	b := completedBooking(booking.PayMethodCard, 55)
	b.Payment.Status = booking.PayStatusCompleted
	bookings.On("Get", mock.Anything, types.ID("b1")).Return(b, nil)

	_, err := svc.Process(context.Background(), auth.Identity{UserID: "r1", Role: auth.RoleUser}, "b1", "")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}
