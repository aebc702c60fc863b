package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Project2Studios/storefront-client/internal/gateway"
)

// Gateway is a mock payment gateway that always confirms successfully.
// It is intended for development and testing purposes.
type Gateway struct{}

// New creates a new mock payment gateway.
func New() *Gateway {
	return &Gateway{}
}

// Name returns the provider name.
func (g *Gateway) Name() string {
	return "mock"
}

// Confirm simulates a payment confirmation that always succeeds.
func (g *Gateway) Confirm(_ context.Context, _ *gateway.ConfirmInput) (*gateway.ConfirmResult, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	return &gateway.ConfirmResult{
		PaymentID: "mock_pay_" + uuid.New().String(),
		Status:    gateway.StatusSucceeded,
	}, nil
}
