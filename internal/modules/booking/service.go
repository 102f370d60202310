package booking

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"rideway/internal/auth"
	"rideway/internal/kafka"
	"rideway/internal/logger"
	"rideway/internal/modules/geo"
	"rideway/internal/modules/pricing"
	"rideway/internal/types"
)

var (
	ErrNotFound     = errors.New("booking not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("booking state conflict")
	ErrAccessDenied = errors.New("access denied")
	ErrBadRequest   = errors.New("bad request")
	ErrAlreadyRated = errors.New("booking already rated")
)

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

type Earnings struct {
	Total   float64 `json:"total_earnings"`
	Rides   int     `json:"total_rides"`
	Average float64 `json:"average_earning"`
}

// Store is the booking persistence contract. Conditional writes
// (AssignDriver, UpdateStatus, SetRiderRating) report whether the guarded
// update actually happened so races surface as conflicts, not lost writes.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	ListByRider(ctx context.Context, riderID types.ID, f ListFilter) ([]Booking, error)
	ListByDriver(ctx context.Context, driverID types.ID, f ListFilter) ([]Booking, error)
	AssignDriver(ctx context.Context, id, driverID types.ID) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	SetRideActuals(ctx context.Context, id types.ID, distanceKm, durationMin *float64) error
	SetCancellation(ctx context.Context, id types.ID, c Cancellation) error
	SetRiderRating(ctx context.Context, id types.ID, r Rating) (bool, error)
	DriverRatingAverage(ctx context.Context, driverID types.ID) (float64, int, error)
	AppendRoutePoint(ctx context.Context, id types.ID, p RoutePoint) error
	AppendEvent(ctx context.Context, e *StatusEvent) error
	EarningsSince(ctx context.Context, driverID types.ID, since time.Time) (Earnings, error)
	SweepNoShows(ctx context.Context, before time.Time) ([]Booking, error)
}

// Users is the slice of the user module the booking lifecycle touches.
type Users interface {
	IncrementBookings(ctx context.Context, userID types.ID) error
	ApplyCompletedRide(ctx context.Context, riderID types.ID, fareTotal float64) error
	ApplyCancelledRide(ctx context.Context, riderID types.ID) error
	SetDriverRating(ctx context.Context, driverID types.ID, average float64) error
}

// MatchIndex keeps the geospatial index of confirmed, unassigned bookings.
type MatchIndex interface {
	AddBooking(ctx context.Context, id types.ID, pos types.Point) error
	RemoveBooking(ctx context.Context, id types.ID) error
}

// Refunder issues refunds for cancelled bookings.
type Refunder interface {
	RefundBooking(ctx context.Context, b *Booking, amount float64, reason string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Service struct {
	store    Store
	users    Users
	index    MatchIndex
	refunds  Refunder
	producer Publisher
	topic    string
	log      logger.Logger
}

func NewService(store Store, users Users, index MatchIndex, refunds Refunder, producer Publisher, topic string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		users:    users,
		index:    index,
		refunds:  refunds,
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

type CreateCommand struct {
	Pickup          Stop
	Destination     Stop
	ScheduledTime   time.Time
	VehicleType     string
	Passengers      int
	SpecialRequests string
	PaymentMethod   string
	SurgeMultiplier float64
	Metadata        Metadata
}

type AdvanceCommand struct {
	BookingID         types.ID
	Status            Status
	Location          *types.Point
	ActualDistanceKm  *float64
	ActualDurationMin *float64
	Reason            string
}

type CancelCommand struct {
	BookingID types.ID
	Reason    string
}

type RateCommand struct {
	BookingID types.ID
	Stars     int
	Comment   string
}

// Create prices the trip and persists a new confirmed booking. Bookings
// are auto-confirmed at creation; matching indexes the pickup point so
// nearby drivers can pick it up.
func (s *Service) Create(ctx context.Context, ident auth.Identity, cmd CreateCommand) (*Booking, error) {
	if cmd.Pickup.Address == "" || cmd.Destination.Address == "" {
		return nil, ErrBadRequest
	}
	if cmd.ScheduledTime.IsZero() {
		return nil, ErrBadRequest
	}
	if cmd.Passengers < 1 || cmd.Passengers > 6 {
		return nil, ErrBadRequest
	}
	if !validPayMethod(cmd.PaymentMethod) {
		return nil, ErrBadRequest
	}

	distance := geo.DistanceKm(cmd.Pickup.Coordinates, cmd.Destination.Coordinates)
	fare, err := pricing.Quote(distance, cmd.VehicleType, cmd.SurgeMultiplier)
	if err != nil {
		return nil, ErrBadRequest
	}

	now := time.Now()
	b := &Booking{
		ID:              types.ID(uuid.NewString()),
		RiderID:         ident.UserID,
		Pickup:          cmd.Pickup,
		Destination:     cmd.Destination,
		ScheduledTime:   cmd.ScheduledTime,
		VehicleType:     cmd.VehicleType,
		Passengers:      cmd.Passengers,
		SpecialRequests: cmd.SpecialRequests,
		Status:          StatusConfirmed,
		Fare:            fare,
		Payment:         Payment{Method: cmd.PaymentMethod, Status: PayStatusPending},
		Metadata:        cmd.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &StatusEvent{
		BookingID:  b.ID,
		FromStatus: "",
		ToStatus:   StatusConfirmed,
		ActorType:  "rider",
		ActorID:    &b.RiderID,
		CreatedAt:  now,
	})

	if s.users != nil {
		if err := s.users.IncrementBookings(ctx, b.RiderID); err != nil {
			s.log.Warn("increment rider bookings failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
		}
	}
	if s.index != nil {
		if err := s.index.AddBooking(ctx, b.ID, b.Pickup.Coordinates); err != nil {
			s.log.Warn("index booking failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
		}
	}
	s.publish(ctx, kafka.EventBookingCreated, b)
	return b, nil
}

// Get returns a booking to its rider, its assigned driver, or an admin.
func (s *Service) Get(ctx context.Context, ident auth.Identity, id types.ID) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(ident, b) {
		return nil, ErrAccessDenied
	}
	return b, nil
}

func (s *Service) ListForRider(ctx context.Context, ident auth.Identity, f ListFilter) ([]Booking, error) {
	return s.store.ListByRider(ctx, ident.UserID, f)
}

func (s *Service) ListForDriver(ctx context.Context, ident auth.Identity, f ListFilter) ([]Booking, error) {
	if ident.Role != auth.RoleDriver {
		return nil, ErrAccessDenied
	}
	return s.store.ListByDriver(ctx, ident.UserID, f)
}

// Assign attaches the calling driver to a confirmed, unassigned booking.
// The write is a single conditional update (status = confirmed AND driver
// IS NULL), so of N concurrent accepts exactly one succeeds; every loser
// gets ErrConflict.
func (s *Service) Assign(ctx context.Context, ident auth.Identity, id types.ID) (*Booking, error) {
	if ident.Role != auth.RoleDriver {
		return nil, ErrAccessDenied
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusConfirmed || b.DriverID != nil {
		return nil, ErrConflict
	}
	ok, err := s.store.AssignDriver(ctx, id, ident.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &StatusEvent{
		BookingID:  id,
		FromStatus: StatusConfirmed,
		ToStatus:   StatusDriverAssigned,
		ActorType:  "driver",
		ActorID:    &ident.UserID,
		CreatedAt:  time.Now(),
	})
	if s.index != nil {
		if err := s.index.RemoveBooking(ctx, id); err != nil {
			s.log.Warn("deindex booking failed", logger.String("booking_id", string(id)), logger.Error(err))
		}
	}

	driverID := ident.UserID
	b.DriverID = &driverID
	b.Status = StatusDriverAssigned
	b.StatusVersion++
	s.publish(ctx, kafka.EventDriverAssigned, b)
	return b, nil
}

// Advance moves a booking along the state machine. Entering in_progress
// stamps the ride start, entering completed stamps the ride end; both
// stamps are write-once, so re-entry never overwrites them. Completion
// applies the rider's stats exactly once (the transition itself can only
// succeed once).
func (s *Service) Advance(ctx context.Context, ident auth.Identity, cmd AdvanceCommand) (*Booking, error) {
	if cmd.Status == StatusCancelled {
		return s.Cancel(ctx, ident, CancelCommand{BookingID: cmd.BookingID, Reason: cmd.Reason})
	}

	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := checkAdvanceActor(ident, b, cmd.Status); err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, cmd.Status) {
		return nil, ErrInvalidState
	}

	ok, err := s.store.UpdateStatus(ctx, cmd.BookingID, b.Status, cmd.Status, b.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &StatusEvent{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   cmd.Status,
		ActorType:  ident.Role,
		ActorID:    &ident.UserID,
		CreatedAt:  time.Now(),
	})

	if cmd.Location != nil {
		if err := s.store.AppendRoutePoint(ctx, b.ID, RoutePoint{Position: *cmd.Location, RecordedAt: time.Now()}); err != nil {
			s.log.Warn("append route point failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
		}
	}

	switch cmd.Status {
	case StatusCompleted:
		if cmd.ActualDistanceKm != nil || cmd.ActualDurationMin != nil {
			if err := s.store.SetRideActuals(ctx, b.ID, cmd.ActualDistanceKm, cmd.ActualDurationMin); err != nil {
				s.log.Warn("set ride actuals failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
			}
		}
		if s.users != nil {
			if err := s.users.ApplyCompletedRide(ctx, b.RiderID, b.Fare.Total); err != nil {
				s.log.Warn("apply rider stats failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
			}
		}
		s.publish(ctx, kafka.EventRideCompleted, b)
	case StatusNoShow:
		if s.index != nil {
			_ = s.index.RemoveBooking(ctx, b.ID)
		}
	}

	return s.store.Get(ctx, cmd.BookingID)
}

// Cancel cancels a non-terminal booking and computes the refund owed:
// more than 2h before the scheduled time refunds 80% of the total,
// between 1h and 2h refunds 50%, under 1h refunds nothing. Completed and
// already-cancelled bookings reject cancellation with ErrConflict.
func (s *Service) Cancel(ctx context.Context, ident auth.Identity, cmd CancelCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if !canView(ident, b) {
		return nil, ErrAccessDenied
	}
	if b.Status == StatusCompleted || b.Status == StatusCancelled {
		return nil, ErrConflict
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}

	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, StatusCancelled, b.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := time.Now()
	c := Cancellation{
		Reason:       cmd.Reason,
		CancelledBy:  cancelledBy(ident, b),
		CancelledAt:  now,
		RefundAmount: RefundAmount(b.Fare.Total, b.ScheduledTime, now),
	}
	if err := s.store.SetCancellation(ctx, b.ID, c); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &StatusEvent{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   StatusCancelled,
		ActorType:  c.CancelledBy,
		ActorID:    &ident.UserID,
		CreatedAt:  now,
	})

	if s.index != nil {
		_ = s.index.RemoveBooking(ctx, b.ID)
	}
	if s.users != nil {
		if err := s.users.ApplyCancelledRide(ctx, b.RiderID); err != nil {
			s.log.Warn("update rider cancel stats", logger.String("rider_id", string(b.RiderID)), logger.Error(err))
		}
	}
	if c.RefundAmount > 0 && s.refunds != nil {
		if err := s.refunds.RefundBooking(ctx, b, c.RefundAmount, cmd.Reason); err != nil {
			s.log.Warn("refund failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
		}
	}

	b.Status = StatusCancelled
	b.StatusVersion++
	b.Cancellation = &c
	s.publish(ctx, kafka.EventBookingCancelled, b)
	return b, nil
}

// Rate records the rider's one-time rating of a completed ride, then
// re-aggregates the driver's average from every historical rider rating
// (full re-aggregation; fine at this scale, revisit if rating volume
// grows).
func (s *Service) Rate(ctx context.Context, ident auth.Identity, cmd RateCommand) (*Rating, error) {
	if cmd.Stars < 1 || cmd.Stars > 5 {
		return nil, ErrBadRequest
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.RiderID != ident.UserID {
		return nil, ErrAccessDenied
	}
	if !b.IsCompleted() {
		return nil, ErrInvalidState
	}
	if b.RiderRating != nil {
		return nil, ErrAlreadyRated
	}

	r := Rating{Stars: cmd.Stars, Comment: cmd.Comment, RatedAt: time.Now()}
	ok, err := s.store.SetRiderRating(ctx, b.ID, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyRated
	}

	if b.DriverID != nil {
		avg, n, err := s.store.DriverRatingAverage(ctx, *b.DriverID)
		if err != nil {
			s.log.Warn("driver rating aggregate failed", logger.String("driver_id", string(*b.DriverID)), logger.Error(err))
		} else if n > 0 && s.users != nil {
			rounded := math.Round(avg*10) / 10
			if err := s.users.SetDriverRating(ctx, *b.DriverID, rounded); err != nil {
				s.log.Warn("persist driver rating failed", logger.String("driver_id", string(*b.DriverID)), logger.Error(err))
			}
		}
	}
	return &r, nil
}

// AppendLocation appends a timestamped coordinate to the active booking's
// route trace. Only the assigned driver may report positions.
func (s *Service) AppendLocation(ctx context.Context, ident auth.Identity, id types.ID, pos types.Point) error {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.DriverID == nil || *b.DriverID != ident.UserID {
		return ErrAccessDenied
	}
	if !b.IsActive() {
		return ErrInvalidState
	}
	return s.store.AppendRoutePoint(ctx, id, RoutePoint{Position: pos, RecordedAt: time.Now()})
}

// EarningsFor summarises a driver's completed fares since the period start.
func (s *Service) EarningsFor(ctx context.Context, ident auth.Identity, period string) (Earnings, time.Time, error) {
	if ident.Role != auth.RoleDriver {
		return Earnings{}, time.Time{}, ErrAccessDenied
	}
	since := periodStart(period, time.Now())
	e, err := s.store.EarningsSince(ctx, ident.UserID, since)
	return e, since, err
}

// SweepNoShows marks stale confirmed bookings that no driver claimed as
// no_show. Run by the worker process.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) ([]Booking, error) {
	swept, err := s.store.SweepNoShows(ctx, time.Now().Add(-grace))
	if err != nil {
		return nil, err
	}
	for i := range swept {
		b := &swept[i]
		_ = s.store.AppendEvent(ctx, &StatusEvent{
			BookingID:  b.ID,
			FromStatus: StatusConfirmed,
			ToStatus:   StatusNoShow,
			ActorType:  "system",
			CreatedAt:  time.Now(),
		})
		if s.index != nil {
			_ = s.index.RemoveBooking(ctx, b.ID)
		}
	}
	return swept, nil
}

func (s *Service) publish(ctx context.Context, eventType string, b *Booking) {
	if s.producer == nil || s.topic == "" {
		return
	}
	ev := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     string(b.ID),
		RiderID:       string(b.RiderID),
		Status:        string(b.Status),
		VehicleType:   b.VehicleType,
		Total:         b.Fare.Total,
		ScheduledTime: b.ScheduledTime,
	}
	if b.DriverID != nil {
		ev.DriverID = string(*b.DriverID)
	}
	if b.Cancellation != nil {
		ev.RefundAmount = b.Cancellation.RefundAmount
	}
	if err := s.producer.Publish(ctx, s.topic, string(b.ID), ev); err != nil {
		s.log.Warn("publish booking event failed",
			logger.String("booking_id", string(b.ID)),
			logger.String("type", eventType),
			logger.Error(err))
	}
}

func canView(ident auth.Identity, b *Booking) bool {
	if ident.Role == auth.RoleAdmin {
		return true
	}
	if b.RiderID == ident.UserID {
		return true
	}
	return b.DriverID != nil && *b.DriverID == ident.UserID
}

// driverStatuses are the transitions only the assigned driver may perform.
var driverStatuses = map[Status]bool{
	StatusDriverEnRoute: true,
	StatusArrived:       true,
	StatusInProgress:    true,
	StatusCompleted:     true,
	StatusNoShow:        true,
}

func checkAdvanceActor(ident auth.Identity, b *Booking, target Status) error {
	if ident.Role == auth.RoleAdmin {
		return nil
	}
	if driverStatuses[target] {
		if b.DriverID == nil || *b.DriverID != ident.UserID {
			return ErrAccessDenied
		}
		return nil
	}
	if b.RiderID != ident.UserID {
		return ErrAccessDenied
	}
	return nil
}

func cancelledBy(ident auth.Identity, b *Booking) string {
	switch {
	case ident.UserID == b.RiderID:
		return CancelledByUser
	case b.DriverID != nil && *b.DriverID == ident.UserID:
		return CancelledByDriver
	default:
		return CancelledBySystem
	}
}

func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7)
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default: // month
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

func validPayMethod(m string) bool {
	switch m {
	case PayMethodCard, PayMethodCash, PayMethodPaypal, PayMethodApplePay, PayMethodGooglePay:
		return true
	}
	return false
}
