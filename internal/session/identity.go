// Package session owns the shopper's session identity: a stable opaque token
// that scopes the anonymous cart and checkout draft on the server, persisted
// in durable client storage. It also mirrors per-step checkout form drafts so
// a reload mid-checkout restores in-progress input without a round trip.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Project2Studios/storefront-client/internal/domain"
)

// Identity manages the shopper's session token lifecycle: lazy creation on
// first access, reissue when the server invalidates a session, and retirement
// after a successful order. It is an explicit handle passed into every store
// and client; there is no package-level session state.
type Identity struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
	token  string
}

// NewIdentity creates a session identity backed by the given store.
func NewIdentity(store Store, logger *slog.Logger) *Identity {
	return &Identity{
		store:  store,
		logger: logger,
	}
}

// Token returns the session token, creating and persisting one on first
// access if none exists.
func (i *Identity) Token(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.token != "" {
		return i.token, nil
	}

	token, err := i.store.LoadToken(ctx)
	if err != nil {
		return "", fmt.Errorf("load session token: %w", err)
	}
	if token != "" {
		i.token = token
		return token, nil
	}

	return i.issueLocked(ctx)
}

// Reissue discards the current token and creates a fresh one. Called when the
// server reports the session expired; the stale drafts go with it.
func (i *Identity) Reissue(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.DeleteDrafts(ctx); err != nil {
		i.logger.WarnContext(ctx, "failed to clear step drafts on reissue",
			slog.String("error", err.Error()),
		)
	}

	return i.issueLocked(ctx)
}

// Retire destroys the session identity and drafts after a successful order.
// The next shopping session starts with a fresh token.
func (i *Identity) Retire(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	if err := i.store.DeleteDrafts(ctx); err != nil {
		return fmt.Errorf("delete step drafts: %w", err)
	}

	i.logger.InfoContext(ctx, "session identity retired",
		slog.String("session_id", i.token),
	)
	i.token = ""
	return nil
}

func (i *Identity) issueLocked(ctx context.Context) (string, error) {
	token := uuid.New().String()
	if err := i.store.SaveToken(ctx, token); err != nil {
		return "", fmt.Errorf("persist session token: %w", err)
	}
	i.token = token

	i.logger.InfoContext(ctx, "session identity issued",
		slog.String("session_id", token),
	)
	return token, nil
}

// SaveStepDraft mirrors a checkout step's form values into durable storage,
// keyed by step name. Drafts are advisory only and never authoritative.
func (i *Identity) SaveStepDraft(ctx context.Context, step domain.CheckoutStep, values any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal step draft: %w", err)
	}
	if err := i.store.SaveDraft(ctx, string(step), data); err != nil {
		return fmt.Errorf("save step draft: %w", err)
	}
	return nil
}

// LoadStepDraft restores a checkout step's form values into dst. Returns
// false if no draft exists.
func (i *Identity) LoadStepDraft(ctx context.Context, step domain.CheckoutStep, dst any) (bool, error) {
	data, err := i.store.LoadDraft(ctx, string(step))
	if err != nil {
		return false, fmt.Errorf("load step draft: %w", err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal step draft: %w", err)
	}
	return true, nil
}
