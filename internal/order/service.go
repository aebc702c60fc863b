// Package order implements the terminal, idempotency-sensitive operation of
// the purchase flow: converting the cart and checkout session into a paid
// order exactly once.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Project2Studios/storefront-client/internal/api"
	"github.com/Project2Studios/storefront-client/internal/cart"
	"github.com/Project2Studios/storefront-client/internal/checkout"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/gateway"
	"github.com/Project2Studios/storefront-client/internal/session"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// OrderAPI is the slice of the commerce client the order service consumes.
type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, req api.CreateOrderRequest) (*domain.Order, error)
}

// CreateInput holds the parameters for placing the order.
type CreateInput struct {
	PaymentMethodID   string `json:"payment_method_id" validate:"required"`
	SavePaymentMethod bool   `json:"save_payment_method"`
}

// Service orchestrates payment capture and order creation. The checkout
// session id is the idempotency key: the Order API must return the original
// order on a repeated call after a prior success rather than create a
// duplicate. That contract belongs to the server collaborator and is asserted
// by this package's tests, never re-derived client-side.
type Service struct {
	// mu serializes order attempts; a second submit while one is in flight
	// queues behind it rather than racing the gateway.
	mu sync.Mutex

	identity  *session.Identity
	carts     *cart.Store
	checkouts *checkout.Store
	gateway   gateway.Gateway
	client    OrderAPI
	logger    *slog.Logger
}

// NewService creates the order creation service.
func NewService(
	identity *session.Identity,
	carts *cart.Store,
	checkouts *checkout.Store,
	gw gateway.Gateway,
	client OrderAPI,
	logger *slog.Logger,
) *Service {
	return &Service{
		identity:  identity,
		carts:     carts,
		checkouts: checkouts,
		gateway:   gw,
		client:    client,
		logger:    logger,
	}
}

// Create captures payment and creates the order. Failure classes:
//
//   - PaymentDeclined: terminal for the attempt; the shopper resubmits
//     payment. Nothing was charged.
//   - SessionExpired: the checkout must restart from the cart step.
//   - PartialFailure: payment captured but the order record failed. Never
//     retried automatically, since a retry risks a second charge; surfaced as
//     a contact-support state.
//
// On success the cart and checkout session are cleared locally, the server is
// told to discard the session, and the session identity is retired.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Order, error) {
	if input.PaymentMethodID == "" {
		return nil, apperrors.Validation("payment method id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	sess := s.checkouts.Session()
	if sess == nil {
		return nil, apperrors.Validation("no checkout session in progress")
	}
	if sess.ShippingAddress == nil {
		return nil, apperrors.Validation("shipping address must be set before placing the order")
	}
	if !sess.TermsAccepted {
		return nil, apperrors.Validation("terms must be accepted before placing the order")
	}

	// Step 1: confirm and capture payment.
	confirm, err := s.gateway.Confirm(ctx, &gateway.ConfirmInput{
		PaymentMethodID: input.PaymentMethodID,
		Amount:          sess.Totals.Total,
		Currency:        "USD",
		SessionID:       sess.ID,
		SaveMethod:      input.SavePaymentMethod,
	})
	if err != nil {
		// The capture outcome is unknown; retrying could double-charge, so
		// this propagates without any automatic retry.
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	if confirm.Status != gateway.StatusSucceeded {
		s.logger.WarnContext(ctx, "payment declined",
			slog.String("session_id", sess.ID),
			slog.String("reason", confirm.DeclineReason),
		)
		return nil, apperrors.PaymentDeclined(confirm.DeclineReason)
	}

	// Step 2: create the order, keyed by the checkout session id.
	ord, err := s.client.CreateOrder(ctx, token, api.CreateOrderRequest{
		SessionID:         sess.ID,
		PaymentMethodID:   input.PaymentMethodID,
		SavePaymentMethod: input.SavePaymentMethod,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionExpired) {
			s.checkouts.Reset(ctx)
			s.carts.Reset(ctx)
			return nil, err
		}
		// Payment is captured but the order record failed. No silent retry.
		s.logger.ErrorContext(ctx, "order creation failed after payment capture",
			slog.String("session_id", sess.ID),
			slog.String("payment_id", confirm.PaymentID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.PartialFailure(err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", ord.ID),
		slog.String("order_number", ord.OrderNumber),
		slog.String("session_id", sess.ID),
		slog.Int64("total", ord.Total),
	)

	// Step 3: tear down the completed shopping session. The order exists;
	// cleanup failures are logged, not surfaced.
	if err := s.checkouts.Discard(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to discard checkout session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
	s.carts.Reset(ctx)
	if err := s.identity.Retire(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to retire session identity",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}

	return ord, nil
}
