// Package payment charges and refunds booking fares and keeps the
// transaction ledger.
package payment

import (
	"time"

	"rideway/internal/types"
)

// Transaction types.
const (
	TypeCharge = "charge"
	TypeRefund = "refund"
)

// Transaction statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction is one ledger row. Amounts are dollars rounded to cents.
type Transaction struct {
	ID         types.ID  `json:"id"`
	BookingID  types.ID  `json:"booking_id"`
	UserID     types.ID  `json:"user_id"`
	Type       string    `json:"type"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
	GatewayRef string    `json:"gateway_ref,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
