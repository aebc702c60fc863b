// Package checkout implements the client reflection of the server-persisted
// checkout draft and the step machine gating navigation through the flow.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Project2Studios/storefront-client/internal/api"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/fetchcache"
	"github.com/Project2Studios/storefront-client/internal/session"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
	"github.com/Project2Studios/storefront-client/pkg/validator"
)

// API is the slice of the commerce client the checkout store consumes.
type API interface {
	GetCheckoutSession(ctx context.Context, token, id string) (*domain.CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, token, id string) (*domain.CheckoutSession, error)
	UpdateCheckoutSession(ctx context.Context, token, id string, patch domain.SessionPatch) (*domain.CheckoutSession, error)
	DeleteCheckoutSession(ctx context.Context, token, id string) error
	ShippingMethods(ctx context.Context, token string, req api.ShippingMethodsRequest) ([]domain.ShippingMethod, error)
	CalculateTax(ctx context.Context, token string, req api.CalculateTaxRequest) (int64, error)
}

// Store keeps the locally cached checkout session in sync with the server.
// The session id equals the shopper's session identity token, which makes
// bootstrap idempotent regardless of client state.
type Store struct {
	mu      sync.RWMutex
	session *domain.CheckoutSession

	// updateMu serializes optimistic session updates so two concurrent
	// patches cannot interleave their snapshots.
	updateMu sync.Mutex

	identity *session.Identity
	client   API
	cache    *fetchcache.Cache[*domain.CheckoutSession]
	logger   *slog.Logger
}

// NewStore creates a checkout session store bound to the session identity.
func NewStore(identity *session.Identity, client API, cache *fetchcache.Cache[*domain.CheckoutSession], logger *slog.Logger) *Store {
	return &Store{
		identity: identity,
		client:   client,
		cache:    cache,
		logger:   logger,
	}
}

func cacheKey(token string) string {
	return "checkout:" + token
}

// Session returns the current local view of the checkout session, or nil if
// none has been fetched yet.
func (s *Store) Session() *domain.CheckoutSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// GetOrCreate fetches the checkout session for the current identity, creating
// it on the server when it does not exist yet. Repeated calls with any client
// state converge on the same session.
func (s *Store) GetOrCreate(ctx context.Context) (*domain.CheckoutSession, error) {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	sess, err := s.cache.Get(ctx, cacheKey(token), func(ctx context.Context) (*domain.CheckoutSession, error) {
		sess, err := s.client.GetCheckoutSession(ctx, token, token)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "checkout session not found, creating",
				slog.String("session_id", token),
			)
			return s.client.CreateCheckoutSession(ctx, token, token)
		}
		return nil, err
	}, fetchcache.Options{})
	if err != nil {
		return nil, err
	}

	s.setSession(sess)
	return sess.Clone(), nil
}

// Update validates the patch locally, applies it optimistically, and
// dispatches it to the server. The authoritative response (totals recomputed
// from address and subtotal) replaces the optimistic merge; on failure the
// pre-mutation snapshot is restored.
func (s *Store) Update(ctx context.Context, patch domain.SessionPatch) (*domain.CheckoutSession, error) {
	// Schema validation first: bad address or payment shape never reaches
	// the network layer.
	if err := validator.Validate(patch); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return nil, apperrors.Validation(verr.Error())
		}
		return nil, err
	}
	if patch.CompleteStep != nil && !domain.IsValidStep(*patch.CompleteStep) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown checkout step %q", *patch.CompleteStep))
	}

	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.RLock()
	missing := s.session == nil
	s.mu.RUnlock()
	if missing {
		if _, err := s.GetOrCreate(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	snapshot := s.session.Clone()
	optimistic := s.session.Clone()
	patch.ApplyTo(optimistic)
	s.session = optimistic
	s.mu.Unlock()

	confirmed, err := s.cache.Call(ctx, "update_session", func(ctx context.Context) (*domain.CheckoutSession, error) {
		return s.client.UpdateCheckoutSession(ctx, token, token, patch)
	})
	if err != nil {
		s.mu.Lock()
		s.session = snapshot
		s.mu.Unlock()

		s.logger.WarnContext(ctx, "checkout update rolled back",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.mu.Lock()
	s.session = confirmed
	s.mu.Unlock()
	s.cache.Put(cacheKey(token), confirmed)

	s.mirrorDrafts(ctx, patch)

	s.logger.InfoContext(ctx, "checkout session updated",
		slog.String("session_id", confirmed.ID),
		slog.Int64("total", confirmed.Totals.Total),
	)

	return confirmed.Clone(), nil
}

// CompleteStep idempotently marks a checkout step complete on the session.
func (s *Store) CompleteStep(ctx context.Context, step domain.CheckoutStep) (*domain.CheckoutSession, error) {
	s.mu.RLock()
	done := s.session != nil && s.session.IsStepComplete(step)
	s.mu.RUnlock()
	if done {
		return s.Session(), nil
	}
	return s.Update(ctx, domain.SessionPatch{CompleteStep: &step})
}

// ShippingMethods quotes delivery options for an address and cart contents.
func (s *Store) ShippingMethods(ctx context.Context, address domain.Address, items []domain.CartItem) ([]domain.ShippingMethod, error) {
	if err := validator.Validate(address); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return nil, apperrors.Validation(verr.Error())
		}
		return nil, err
	}

	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return s.client.ShippingMethods(ctx, token, api.ShippingMethodsRequest{
		Address: address,
		Items:   items,
	})
}

// CalculateTax returns the tax for an amount shipped to an address. The
// server consults the same collaborator when recomputing session totals; the
// pass-through exists for preview display only.
func (s *Store) CalculateTax(ctx context.Context, address domain.Address, amount int64) (int64, error) {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	return s.client.CalculateTax(ctx, token, api.CalculateTaxRequest{
		Address: address,
		Amount:  amount,
	})
}

// Discard clears local state and instructs the server to drop the session.
// Called after a successful order.
func (s *Store) Discard(ctx context.Context) error {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	if err := s.client.DeleteCheckoutSession(ctx, token, token); err != nil {
		return fmt.Errorf("discard checkout session: %w", err)
	}

	s.cache.Invalidate(cacheKey(token))
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	return nil
}

// Reset drops only the local reflection, e.g. after a session expiry forces
// checkout to restart from the cart step.
func (s *Store) Reset(ctx context.Context) {
	token, err := s.identity.Token(ctx)
	if err == nil {
		s.cache.Invalidate(cacheKey(token))
	}
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// mirrorDrafts writes the patched step forms into durable per-step storage so
// a reload restores in-progress input. Advisory only; failures are logged.
func (s *Store) mirrorDrafts(ctx context.Context, patch domain.SessionPatch) {
	if patch.ShippingAddress != nil || patch.ShippingMethod != nil {
		draft := struct {
			Address *domain.Address        `json:"address,omitempty"`
			Method  *domain.ShippingMethod `json:"method,omitempty"`
		}{patch.ShippingAddress, patch.ShippingMethod}
		if err := s.identity.SaveStepDraft(ctx, domain.StepShipping, draft); err != nil {
			s.logger.WarnContext(ctx, "failed to mirror shipping draft",
				slog.String("error", err.Error()),
			)
		}
	}
	if patch.PaymentMethod != nil || patch.OrderNotes != nil || patch.TermsAccepted != nil {
		draft := struct {
			Payment       *domain.PaymentMethodSelection `json:"payment,omitempty"`
			OrderNotes    *string                        `json:"order_notes,omitempty"`
			TermsAccepted *bool                          `json:"terms_accepted,omitempty"`
		}{patch.PaymentMethod, patch.OrderNotes, patch.TermsAccepted}
		if err := s.identity.SaveStepDraft(ctx, domain.StepPayment, draft); err != nil {
			s.logger.WarnContext(ctx, "failed to mirror payment draft",
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Store) setSession(sess *domain.CheckoutSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
}
