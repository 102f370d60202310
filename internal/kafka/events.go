package kafka

import "time"

// Booking lifecycle event types.
const (
	EventBookingCreated   = "booking_created"
	EventDriverAssigned   = "driver_assigned"
	EventRideCompleted    = "ride_completed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingNoShow    = "booking_no_show"
)

// BookingEvent is the payload published on every booking transition the
// worker cares about.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	RiderID       string    `json:"rider_id"`
	DriverID      string    `json:"driver_id,omitempty"`
	Status        string    `json:"status"`
	VehicleType   string    `json:"vehicle_type"`
	Total         float64   `json:"total"`
	RefundAmount  float64   `json:"refund_amount,omitempty"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// NotificationEvent asks the worker to persist and deliver one notification.
type NotificationEvent struct {
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	BookingID string `json:"booking_id,omitempty"`
}
