package matching

import (
	"context"
	"errors"

	"rideway/internal/auth"
	"rideway/internal/logger"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

var ErrAccessDenied = errors.New("access denied")

// Index is the geo store contract.
type Index interface {
	AddBooking(ctx context.Context, id types.ID, pos types.Point) error
	RemoveBooking(ctx context.Context, id types.ID) error
	UpdateDriver(ctx context.Context, id types.ID, pos types.Point) error
	RemoveDriver(ctx context.Context, id types.ID) error
	NearbyBookings(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error)
	NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error)
}

// Bookings hydrates index hits from the system of record.
type Bookings interface {
	Get(ctx context.Context, id types.ID) (*booking.Booking, error)
}

// Drivers re-checks driver hits against the account store.
type Drivers interface {
	GetByID(ctx context.Context, id types.ID) (*user.User, error)
}

// Offer is an open booking presented to a nearby driver.
type Offer struct {
	Booking    booking.Booking `json:"booking"`
	DistanceKm float64         `json:"distance_km"`
}

type Service struct {
	index    Index
	bookings Bookings
	drivers  Drivers
	radiusKm float64
	limit    int
	log      logger.Logger
}

func NewService(index Index, bookings Bookings, drivers Drivers, radiusKm float64, limit int, log logger.Logger) *Service {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{index: index, bookings: bookings, drivers: drivers, radiusKm: radiusKm, limit: limit, log: log}
}

// GoOnline registers or refreshes the driver's position in the index.
func (s *Service) GoOnline(ctx context.Context, ident auth.Identity, pos types.Point) error {
	if ident.Role != auth.RoleDriver {
		return ErrAccessDenied
	}
	return s.index.UpdateDriver(ctx, ident.UserID, pos)
}

func (s *Service) GoOffline(ctx context.Context, ident auth.Identity) error {
	if ident.Role != auth.RoleDriver {
		return ErrAccessDenied
	}
	return s.index.RemoveDriver(ctx, ident.UserID)
}

// AvailableBookings returns open bookings near the driver, nearest first.
// The Redis index is a hint, not the system of record: every hit is
// re-checked against the database and stale entries are evicted on sight.
func (s *Service) AvailableBookings(ctx context.Context, ident auth.Identity, pos types.Point, radiusKm float64, limit int) ([]Offer, error) {
	if ident.Role != auth.RoleDriver {
		return nil, ErrAccessDenied
	}
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}
	if limit <= 0 {
		limit = s.limit
	}

	hits, err := s.index.NearbyBookings(ctx, pos, radiusKm, limit)
	if err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, len(hits))
	for _, hit := range hits {
		b, err := s.bookings.Get(ctx, hit.ID)
		if errors.Is(err, booking.ErrNotFound) {
			s.evict(ctx, hit.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if b.Status != booking.StatusConfirmed || b.DriverID != nil {
			s.evict(ctx, hit.ID)
			continue
		}
		offers = append(offers, Offer{Booking: *b, DistanceKm: hit.DistanceKm})
	}
	return offers, nil
}

// NearbyDrivers reports online drivers around a point. Like the bookings
// path, index hits are re-checked against the account store: deleted,
// suspended, or demoted drivers are evicted instead of being offered.
func (s *Service) NearbyDrivers(ctx context.Context, pos types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}
	if limit <= 0 {
		limit = s.limit
	}

	hits, err := s.index.NearbyDrivers(ctx, pos, radiusKm, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		u, err := s.drivers.GetByID(ctx, hit.ID)
		if errors.Is(err, user.ErrNotFound) {
			s.evictDriver(ctx, hit.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if u.Role != auth.RoleDriver || u.Status != user.StatusActive {
			s.evictDriver(ctx, hit.ID)
			continue
		}
		out = append(out, hit)
	}
	return out, nil
}

func (s *Service) evict(ctx context.Context, id types.ID) {
	if err := s.index.RemoveBooking(ctx, id); err != nil {
		s.log.Warn("evict stale booking from index", logger.String("booking_id", string(id)), logger.Error(err))
	}
}

func (s *Service) evictDriver(ctx context.Context, id types.ID) {
	if err := s.index.RemoveDriver(ctx, id); err != nil {
		s.log.Warn("evict stale driver from index", logger.String("driver_id", string(id)), logger.Error(err))
	}
}
