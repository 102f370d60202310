package payment

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"rideway/internal/auth"
	"rideway/internal/logger"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

var (
	ErrNotFound       = errors.New("transaction not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrAlreadyPaid    = errors.New("booking already paid")
	ErrMethodNotFound = errors.New("payment method not found")
)

// Store is the transaction ledger contract.
type Store interface {
	Insert(ctx context.Context, t *Transaction) error
	ListByUser(ctx context.Context, userID types.ID, limit, offset int) ([]Transaction, error)
	ListByBooking(ctx context.Context, bookingID types.ID) ([]Transaction, error)
	LastChargeRef(ctx context.Context, bookingID types.ID) (string, error)
}

// BookingPayments reads bookings and writes payment outcomes back onto them.
type BookingPayments interface {
	Get(ctx context.Context, id types.ID) (*booking.Booking, error)
	SetPaymentStatus(ctx context.Context, id types.ID, status, transactionID string, paidAt *time.Time) error
}

// Wallet exposes the rider's stored payment methods.
type Wallet interface {
	ListPaymentMethods(ctx context.Context, userID types.ID) ([]user.PaymentMethod, error)
}

type Service struct {
	store    Store
	gateway  Gateway
	bookings BookingPayments
	wallet   Wallet
	log      logger.Logger
}

func NewService(store Store, gateway Gateway, bookings BookingPayments, wallet Wallet, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, gateway: gateway, bookings: bookings, wallet: wallet, log: log}
}

// Process charges a booking against one of the rider's stored methods,
// ahead of the automatic charge-on-completion. methodID empty means the
// wallet default.
func (s *Service) Process(ctx context.Context, ident auth.Identity, bookingID, methodID types.ID) (*Transaction, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RiderID != ident.UserID && ident.Role != auth.RoleAdmin {
		return nil, ErrAccessDenied
	}
	if b.Payment.Status == booking.PayStatusCompleted || b.Payment.Status == booking.PayStatusRefunded {
		return nil, ErrAlreadyPaid
	}

	if s.wallet != nil {
		methods, err := s.wallet.ListPaymentMethods(ctx, b.RiderID)
		if err != nil {
			return nil, err
		}
		var chosen *user.PaymentMethod
		for i := range methods {
			m := &methods[i]
			if methodID != "" && m.ID == methodID {
				chosen = m
				break
			}
			if methodID == "" && m.IsDefault {
				chosen = m
			}
		}
		if chosen == nil {
			return nil, ErrMethodNotFound
		}
		b.Payment.Method = chosen.Type
	}
	return s.ChargeBooking(ctx, b)
}

// ChargeBooking collects the fare after a completed ride. Cash rides are
// recorded as settled outside the gateway.
func (s *Service) ChargeBooking(ctx context.Context, b *booking.Booking) (*Transaction, error) {
	t := &Transaction{
		ID:        types.ID(uuid.NewString()),
		BookingID: b.ID,
		UserID:    b.RiderID,
		Type:      TypeCharge,
		Amount:    round2(b.Fare.Total),
		Currency:  b.Fare.Currency,
		Method:    b.Payment.Method,
		CreatedAt: time.Now(),
	}

	if b.Payment.Method == booking.PayMethodCash {
		t.Status = StatusCompleted
		t.GatewayRef = "cash"
	} else {
		ref, err := s.gateway.Charge(ctx, b.Payment.Method, t.Amount, string(b.ID))
		if err != nil {
			t.Status = StatusFailed
			t.Reason = err.Error()
			if insErr := s.store.Insert(ctx, t); insErr != nil {
				s.log.Error("record failed charge", logger.Error(insErr))
			}
			s.markBooking(ctx, b.ID, booking.PayStatusFailed, "", nil)
			return nil, err
		}
		t.Status = StatusCompleted
		t.GatewayRef = ref
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	now := t.CreatedAt
	s.markBooking(ctx, b.ID, booking.PayStatusCompleted, t.GatewayRef, &now)
	return t, nil
}

// RefundBooking returns part of a cancelled fare. Satisfies the booking
// lifecycle's refunder hook. Only money that was actually collected moves:
// a booking that was never charged keeps its computed refund amount on the
// cancellation record, but no gateway call, ledger row, or payment status
// change happens.
func (s *Service) RefundBooking(ctx context.Context, b *booking.Booking, amount float64, reason string) error {
	chargeRef, err := s.store.LastChargeRef(ctx, b.ID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	ref, err := s.gateway.Refund(ctx, chargeRef, round2(amount))
	if err != nil {
		return err
	}

	t := &Transaction{
		ID:         types.ID(uuid.NewString()),
		BookingID:  b.ID,
		UserID:     b.RiderID,
		Type:       TypeRefund,
		Amount:     round2(amount),
		Currency:   b.Fare.Currency,
		Method:     b.Payment.Method,
		Status:     StatusCompleted,
		GatewayRef: ref,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return err
	}
	s.markBooking(ctx, b.ID, booking.PayStatusRefunded, ref, nil)
	return nil
}

// Transactions lists the caller's ledger rows, newest first.
func (s *Service) Transactions(ctx context.Context, ident auth.Identity, limit, offset int) ([]Transaction, error) {
	return s.store.ListByUser(ctx, ident.UserID, limit, offset)
}

func (s *Service) BookingTransactions(ctx context.Context, bookingID types.ID) ([]Transaction, error) {
	return s.store.ListByBooking(ctx, bookingID)
}

func (s *Service) markBooking(ctx context.Context, id types.ID, status, ref string, paidAt *time.Time) {
	if s.bookings == nil {
		return
	}
	if err := s.bookings.SetPaymentStatus(ctx, id, status, ref, paidAt); err != nil {
		s.log.Warn("update booking payment status", logger.String("booking_id", string(id)), logger.Error(err))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
