// Package user implements accounts, credentials, saved addresses and
// payment methods.
package user

import (
	"time"

	"rideway/internal/types"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBanned   = "banned"
)

// Failed-login lockout policy.
const (
	maxFailedLogins = 5
	lockDuration    = 2 * time.Hour
)

// Preferences are per-user delivery and locale settings. New accounts get
// DefaultPreferences.
type Preferences struct {
	EmailNotifications bool   `json:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	Language           string `json:"language"`
	Currency           string `json:"currency"`
	Theme              string `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		SMSNotifications:   true,
		PushNotifications:  true,
		Language:           "en",
		Currency:           "USD",
		Theme:              "light",
	}
}

// Stats accumulate over the account's ride history.
type Stats struct {
	TotalBookings  int     `json:"total_bookings"`
	CompletedRides int     `json:"completed_rides"`
	CancelledRides int     `json:"cancelled_rides"`
	TotalSpent     float64 `json:"total_spent"`
	Rating         float64 `json:"rating"`
}

// DriverInfo is set only for driver accounts.
type DriverInfo struct {
	LicenseNumber string `json:"license_number"`
	VehicleMake   string `json:"vehicle_make,omitempty"`
	VehicleModel  string `json:"vehicle_model,omitempty"`
	VehicleYear   int    `json:"vehicle_year,omitempty"`
	VehicleColor  string `json:"vehicle_color,omitempty"`
	VehiclePlate  string `json:"vehicle_plate,omitempty"`
	VehicleType   string `json:"vehicle_type,omitempty"`
	Capacity      int    `json:"capacity,omitempty"`
	Verified      bool   `json:"verified"`
}

type User struct {
	ID            types.ID    `json:"id"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Phone         string      `json:"phone,omitempty"`
	Role          string      `json:"role"`
	Status        string      `json:"status"`
	AvatarURL     string      `json:"avatar_url,omitempty"`
	EmailVerified bool        `json:"email_verified"`
	Driver        *DriverInfo `json:"driver,omitempty"`
	Preferences   Preferences `json:"preferences"`
	Stats         Stats       `json:"stats"`

	FailedLogins int        `json:"-"`
	LockedUntil  *time.Time `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsLocked reports whether failed logins have locked the account at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// MemberDays is the account age in whole days at now.
func (u *User) MemberDays(now time.Time) int {
	if now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Address is a saved location. At most one address per user carries the
// default flag.
type Address struct {
	ID          types.ID    `json:"id"`
	UserID      types.ID    `json:"-"`
	Label       string      `json:"label"`
	Street      string      `json:"street"`
	City        string      `json:"city,omitempty"`
	State       string      `json:"state,omitempty"`
	ZipCode     string      `json:"zip_code,omitempty"`
	Country     string      `json:"country,omitempty"`
	Coordinates types.Point `json:"coordinates"`
	IsDefault   bool        `json:"is_default"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PaymentMethod is a stored payment instrument. Only non-sensitive display
// fields are kept; at most one per user is the default.
type PaymentMethod struct {
	ID          types.ID  `json:"id"`
	UserID      types.ID  `json:"-"`
	Type        string    `json:"type"`
	Brand       string    `json:"brand,omitempty"`
	Last4       string    `json:"last4,omitempty"`
	ExpiryMonth int       `json:"expiry_month,omitempty"`
	ExpiryYear  int       `json:"expiry_year,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}
