// Package notification persists per-user notifications and fans them out
// to delivery channels the user has opted into.
package notification

import (
	"time"

	"rideway/internal/types"
)

// Notification kinds.
const (
	KindBookingCreated   = "booking_created"
	KindDriverAssigned   = "driver_assigned"
	KindRideCompleted    = "ride_completed"
	KindBookingCancelled = "booking_cancelled"
	KindBookingNoShow    = "booking_no_show"
	KindWelcome          = "welcome"
	KindPasswordReset    = "password_reset"
	KindPromotion        = "promotion"
	KindSystem           = "system"
)

type Notification struct {
	ID        types.ID  `json:"id"`
	UserID    types.ID  `json:"-"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	BookingID types.ID  `json:"booking_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
