package booking

import (
	"testing"
	"time"
)

// TestCanTransition verifies the state machine transition table without a
// database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusDriverAssigned, true},
		{StatusDriverAssigned, StatusDriverEnRoute, true},
		{StatusDriverEnRoute, StatusArrived, true},
		{StatusArrived, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		// cancels from every non-terminal state
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusDriverAssigned, StatusCancelled, true},
		{StatusDriverEnRoute, StatusCancelled, true},
		{StatusArrived, StatusCancelled, true},
		{StatusInProgress, StatusCancelled, true},
		// no-shows from every non-terminal state
		{StatusPending, StatusNoShow, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusInProgress, StatusNoShow, true},
		// invalid: terminal states have no outgoing transitions
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusNoShow, StatusConfirmed, false},
		// invalid: skipping states
		{StatusConfirmed, StatusDriverEnRoute, false},
		{StatusConfirmed, StatusInProgress, false},
		{StatusConfirmed, StatusCompleted, false},
		{StatusDriverAssigned, StatusInProgress, false},
		// invalid: backwards
		{StatusInProgress, StatusArrived, false},
		{StatusCompleted, StatusInProgress, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusCancelled, StatusNoShow}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	open := []Status{StatusPending, StatusConfirmed, StatusDriverAssigned, StatusDriverEnRoute, StatusArrived, StatusInProgress}
	for _, s := range open {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestRefundAmount(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name      string
		total     float64
		scheduled time.Time
		want      float64
	}{
		{"more than 2h out refunds 80%", 100, now.Add(3 * time.Hour), 80},
		{"between 1h and 2h refunds 50%", 100, now.Add(90 * time.Minute), 50},
		{"under 1h refunds nothing", 100, now.Add(30 * time.Minute), 0},
		{"already past refunds nothing", 100, now.Add(-10 * time.Minute), 0},
		{"exactly 2h falls into 50% tier", 100, now.Add(2 * time.Hour), 50},
		{"exactly 1h falls into no-refund tier", 100, now.Add(1 * time.Hour), 0},
		{"refund rounds to cents", 44.83, now.Add(3 * time.Hour), 35.86},
		{"half refund rounds to cents", 44.83, now.Add(90 * time.Minute), 22.42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RefundAmount(tc.total, tc.scheduled, now)
			if got != tc.want {
				t.Errorf("RefundAmount(%v, +%v) = %v, want %v", tc.total, tc.scheduled.Sub(now), got, tc.want)
			}
		})
	}
}

func TestRideDuration(t *testing.T) {
	var b Booking
	if _, ok := b.RideDuration(); ok {
		t.Fatal("expected no duration before the ride started")
	}

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(23*time.Minute + 30*time.Second)
	b.Ride.StartedAt = &start
	if _, ok := b.RideDuration(); ok {
		t.Fatal("expected no duration before the ride ended")
	}
	b.Ride.EndedAt = &end

	got, ok := b.RideDuration()
	if !ok {
		t.Fatal("expected a duration after start and end are set")
	}
	if got != 23.5 {
		t.Errorf("RideDuration() = %v, want 23.5", got)
	}
}

func TestDerivedFlags(t *testing.T) {
	now := time.Now()

	upcoming := Booking{Status: StatusConfirmed, ScheduledTime: now.Add(time.Hour)}
	if !upcoming.IsUpcoming(now) {
		t.Error("confirmed future booking should be upcoming")
	}
	past := Booking{Status: StatusConfirmed, ScheduledTime: now.Add(-time.Hour)}
	if past.IsUpcoming(now) {
		t.Error("past booking should not be upcoming")
	}

	for _, s := range []Status{StatusDriverAssigned, StatusDriverEnRoute, StatusArrived, StatusInProgress} {
		if !(&Booking{Status: s}).IsActive() {
			t.Errorf("status %s should be active", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow} {
		if (&Booking{Status: s}).IsActive() {
			t.Errorf("status %s should not be active", s)
		}
	}
}
