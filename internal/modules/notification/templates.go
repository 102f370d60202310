package notification

import (
	"fmt"

	"rideway/internal/kafka"
)

// FromBookingEvent expands a booking lifecycle event into the per-user
// notifications it should produce.
func FromBookingEvent(ev kafka.BookingEvent) []kafka.NotificationEvent {
	var out []kafka.NotificationEvent

	add := func(userID, kind, title, body string) {
		if userID == "" {
			return
		}
		out = append(out, kafka.NotificationEvent{
			UserID:    userID,
			Kind:      kind,
			Title:     title,
			Body:      body,
			BookingID: ev.BookingID,
		})
	}

	switch ev.Type {
	case kafka.EventBookingCreated:
		add(ev.RiderID, KindBookingCreated,
			"Booking confirmed",
			fmt.Sprintf("Your %s ride for %s is confirmed. Estimated fare $%.2f.",
				ev.VehicleType, ev.ScheduledTime.Format("Jan 2 15:04"), ev.Total))
	case kafka.EventDriverAssigned:
		add(ev.RiderID, KindDriverAssigned,
			"Driver assigned",
			"A driver accepted your booking and is getting ready.")
		add(ev.DriverID, KindDriverAssigned,
			"Ride claimed",
			fmt.Sprintf("You claimed a %s ride scheduled for %s.",
				ev.VehicleType, ev.ScheduledTime.Format("Jan 2 15:04")))
	case kafka.EventRideCompleted:
		add(ev.RiderID, KindRideCompleted,
			"Ride completed",
			fmt.Sprintf("Thanks for riding. Your fare was $%.2f. Rate your trip when you have a minute.", ev.Total))
		add(ev.DriverID, KindRideCompleted,
			"Ride completed",
			fmt.Sprintf("Trip finished. $%.2f added to your earnings.", ev.Total))
	case kafka.EventBookingCancelled:
		body := "Your booking was cancelled."
		if ev.RefundAmount > 0 {
			body = fmt.Sprintf("Your booking was cancelled. A refund of $%.2f is on its way.", ev.RefundAmount)
		}
		add(ev.RiderID, KindBookingCancelled, "Booking cancelled", body)
		add(ev.DriverID, KindBookingCancelled, "Booking cancelled", "A ride you claimed was cancelled.")
	case kafka.EventBookingNoShow:
		add(ev.RiderID, KindBookingNoShow,
			"Booking expired",
			"No driver claimed your booking before the scheduled time.")
	}
	return out
}
