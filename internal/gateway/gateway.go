// Package gateway defines the payment gateway collaborator the order flow
// consumes. The gateway owns card data and capture; the engine only ever
// sees opaque payment method ids and confirmation results.
package gateway

import "context"

// Confirmation statuses reported by the gateway.
const (
	StatusSucceeded = "succeeded"
	StatusDeclined  = "declined"
)

// ConfirmInput holds the parameters for confirming and capturing a payment.
type ConfirmInput struct {
	PaymentMethodID string
	Amount          int64
	Currency        string
	SessionID       string
	SaveMethod      bool
}

// ConfirmResult holds the outcome of a payment confirmation.
type ConfirmResult struct {
	PaymentID     string
	Status        string // StatusSucceeded or StatusDeclined
	DeclineReason string
}

// Gateway is the payment provider integration point.
type Gateway interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// Confirm confirms and captures a payment for the given method. A decline
	// is reported in the result, not as an error; errors mean the attempt's
	// outcome is unknown.
	Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmResult, error)
}
