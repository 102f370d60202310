// Package booking implements the ride booking aggregate and its lifecycle.
package booking

import (
	"math"
	"time"

	"rideway/internal/modules/pricing"
	"rideway/internal/types"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusDriverAssigned Status = "driver_assigned"
	StatusDriverEnRoute  Status = "driver_en_route"
	StatusArrived        Status = "arrived"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusNoShow         Status = "no_show"
)

// AllowedTransitions encodes the booking state flow. Cancelled and no_show
// are reachable from every non-terminal state; completed, cancelled and
// no_show have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:      {StatusDriverAssigned, StatusCancelled, StatusNoShow},
	StatusDriverAssigned: {StatusDriverEnRoute, StatusCancelled, StatusNoShow},
	StatusDriverEnRoute:  {StatusArrived, StatusCancelled, StatusNoShow},
	StatusArrived:        {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress:     {StatusCompleted, StatusCancelled, StatusNoShow},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s Status) bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

// Payment method and status enums.
const (
	PayMethodCard      = "card"
	PayMethodCash      = "cash"
	PayMethodPaypal    = "paypal"
	PayMethodApplePay  = "apple_pay"
	PayMethodGooglePay = "google_pay"

	PayStatusPending   = "pending"
	PayStatusCompleted = "completed"
	PayStatusFailed    = "failed"
	PayStatusRefunded  = "refunded"
)

// Cancellation initiators.
const (
	CancelledByUser   = "user"
	CancelledByDriver = "driver"
	CancelledBySystem = "system"
)

// Stop is one end of a trip.
type Stop struct {
	Address      string      `json:"address"`
	City         string      `json:"city,omitempty"`
	State        string      `json:"state,omitempty"`
	ZipCode      string      `json:"zip_code,omitempty"`
	Country      string      `json:"country,omitempty"`
	Coordinates  types.Point `json:"coordinates"`
	Instructions string      `json:"instructions,omitempty"`
}

type Payment struct {
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type RoutePoint struct {
	Position   types.Point `json:"position"`
	RecordedAt time.Time   `json:"recorded_at"`
}

type RideDetails struct {
	StartedAt         *time.Time   `json:"started_at,omitempty"`
	EndedAt           *time.Time   `json:"ended_at,omitempty"`
	ActualDistanceKm  *float64     `json:"actual_distance_km,omitempty"`
	ActualDurationMin *float64     `json:"actual_duration_min,omitempty"`
	Route             []RoutePoint `json:"route,omitempty"`
}

type Rating struct {
	Stars   int       `json:"stars"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type Cancellation struct {
	Reason       string    `json:"reason"`
	CancelledBy  string    `json:"cancelled_by"`
	CancelledAt  time.Time `json:"cancelled_at"`
	RefundAmount float64   `json:"refund_amount"`
}

type Metadata struct {
	AppVersion string `json:"app_version,omitempty"`
	Platform   string `json:"platform,omitempty"`
	DeviceInfo string `json:"device_info,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
}

// Booking is a single requested ride. Never physically deleted; terminal
// statuses are the only form of removal.
type Booking struct {
	ID              types.ID      `json:"id"`
	RiderID         types.ID      `json:"rider_id"`
	DriverID        *types.ID     `json:"driver_id,omitempty"`
	Pickup          Stop          `json:"pickup"`
	Destination     Stop          `json:"destination"`
	ScheduledTime   time.Time     `json:"scheduled_time"`
	VehicleType     string        `json:"vehicle_type"`
	Passengers      int           `json:"passengers"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	Status          Status        `json:"status"`
	StatusVersion   int           `json:"-"`
	Fare            pricing.Fare  `json:"fare"`
	Payment         Payment       `json:"payment"`
	Ride            RideDetails   `json:"ride"`
	RiderRating     *Rating       `json:"rider_rating,omitempty"`
	DriverRating    *Rating       `json:"driver_rating,omitempty"`
	Cancellation    *Cancellation `json:"cancellation,omitempty"`
	Metadata        Metadata      `json:"metadata,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// StatusEvent is one row of the transition audit trail.
type StatusEvent struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// RideDuration returns the ride length in minutes, or false when the ride
// has not both started and ended.
func (b *Booking) RideDuration() (float64, bool) {
	if b.Ride.StartedAt == nil || b.Ride.EndedAt == nil {
		return 0, false
	}
	return b.Ride.EndedAt.Sub(*b.Ride.StartedAt).Minutes(), true
}

// IsUpcoming reports whether the booking is confirmed and scheduled in the
// future relative to now.
func (b *Booking) IsUpcoming(now time.Time) bool {
	return b.Status == StatusConfirmed && b.ScheduledTime.After(now)
}

// IsActive reports whether a driver is currently working the booking.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case StatusDriverAssigned, StatusDriverEnRoute, StatusArrived, StatusInProgress:
		return true
	}
	return false
}

func (b *Booking) IsCompleted() bool { return b.Status == StatusCompleted }
func (b *Booking) IsCancelled() bool { return b.Status == StatusCancelled }

// Refund tier thresholds and rates. Business policy, set by product.
const (
	fullRefundWindow    = 2 * time.Hour
	partialRefundWindow = 1 * time.Hour
	earlyRefundRate     = 0.8
	lateRefundRate      = 0.5
)

// RefundAmount computes the refund owed when a booking with the given fare
// total, scheduled at scheduledTime, is cancelled at now.
func RefundAmount(total float64, scheduledTime, now time.Time) float64 {
	until := scheduledTime.Sub(now)
	switch {
	case until > fullRefundWindow:
		return round2(total * earlyRefundRate)
	case until > partialRefundWindow:
		return round2(total * lateRefundRate)
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
