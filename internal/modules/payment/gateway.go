package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Gateway is the upstream payment processor.
type Gateway interface {
	Charge(ctx context.Context, method string, amount float64, reference string) (string, error)
	Refund(ctx context.Context, gatewayRef string, amount float64) (string, error)
}

var ErrGatewayDeclined = errors.New("payment declined")

// SimGateway approves everything and mints synthetic references. Stands in
// for a real processor in development and tests.
type SimGateway struct{}

func (SimGateway) Charge(ctx context.Context, method string, amount float64, reference string) (string, error) {
	if amount <= 0 {
		return "", ErrGatewayDeclined
	}
	return "sim_ch_" + uuid.NewString(), nil
}

func (SimGateway) Refund(ctx context.Context, gatewayRef string, amount float64) (string, error) {
	if amount <= 0 {
		return "", ErrGatewayDeclined
	}
	return "sim_rf_" + uuid.NewString(), nil
}
