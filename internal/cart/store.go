// Package cart implements the client reflection of the server cart: cached
// reads through the fetch cache and optimistic mutations that reconcile
// against the authoritative server response or are discarded, leaving the
// last server-confirmed state.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Project2Studios/storefront-client/internal/api"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/fetchcache"
	"github.com/Project2Studios/storefront-client/internal/session"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// Cart operation upper-bound limits, mirroring what the server enforces so
// obviously-bad input never leaves the client.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single line.
	MaxQuantityPerItem = 100
)

// API is the slice of the commerce client the cart store consumes.
type API interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	AddItem(ctx context.Context, token string, req api.AddItemRequest) (*domain.Cart, error)
	UpdateItem(ctx context.Context, token, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, token, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, token string) error
}

// AddItemInput holds the parameters for adding an item to the cart. UnitPrice
// is the price shown on the product page; it makes the optimistic line total
// derivable locally and is replaced by the server's figure on reconciliation.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
}

// Store keeps the locally cached cart in sync with the server. All methods
// are safe for concurrent use; mutations targeting the same item id are
// serialized while distinct items proceed independently.
//
// The local view is derived, never stored: the last server-confirmed cart
// with every in-flight optimistic patch replayed on top. A failed mutation
// drops only its own patch, so concurrent mutations on other items keep
// their confirmed results and their pending patches intact.
type Store struct {
	mu        sync.RWMutex
	confirmed *domain.Cart
	pending   []*mutation

	identity *session.Identity
	client   API
	cache    *fetchcache.Cache[*domain.Cart]
	logger   *slog.Logger
	locks    *keyedLocks
}

// NewStore creates a cart store bound to the given session identity.
func NewStore(identity *session.Identity, client API, cache *fetchcache.Cache[*domain.Cart], logger *slog.Logger) *Store {
	return &Store{
		identity: identity,
		client:   client,
		cache:    cache,
		logger:   logger,
		locks:    newKeyedLocks(),
	}
}

func cacheKey(token string) string {
	return "cart:" + token
}

// Cart returns the current local view of the cart. It may include pending
// optimistic patches; it never includes state a failed mutation left behind.
func (s *Store) Cart() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.confirmed == nil {
		return domain.EmptyCart()
	}
	return s.viewLocked()
}

// viewLocked derives the local view: a clone of the confirmed baseline with
// the pending patches replayed in arrival order. Callers hold mu.
func (s *Store) viewLocked() *domain.Cart {
	view := s.confirmed.Clone()
	for _, m := range s.pending {
		m.patch(view)
	}
	return view
}

// Fetch returns the cart, served from cache when fresh. An expired session is
// transparently reissued and the fetch repeated against the new identity.
func (s *Store) Fetch(ctx context.Context) (*domain.Cart, error) {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	cart, err := s.cache.Get(ctx, cacheKey(token), func(ctx context.Context) (*domain.Cart, error) {
		return s.client.GetCart(ctx, token)
	}, fetchcache.Options{})
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionExpired) {
			return s.refetchWithNewSession(ctx)
		}
		return nil, err
	}

	s.setCart(cart)
	return cart.Clone(), nil
}

// Invalidate marks the cached cart stale so the next Fetch hits the server.
func (s *Store) Invalidate(ctx context.Context) {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return
	}
	s.cache.Invalidate(cacheKey(token))
}

// AddItem optimistically appends (or bumps) a line and reconciles against the
// server. Mutations for the same product variant are serialized.
func (s *Store) AddItem(ctx context.Context, input AddItemInput) (*domain.Cart, error) {
	if input.ProductID == "" {
		return nil, apperrors.Validation("product id is required")
	}
	if input.VariantID == "" {
		return nil, apperrors.Validation("variant id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.Validation(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	lockKey := input.ProductID + "/" + input.VariantID
	// The pending id is fixed up front so the line keeps its identity across
	// view derivations while the call is in flight.
	pendingID := "pending-" + uuid.New().String()
	return s.mutate(ctx, "add_item", lockKey,
		func(c *domain.Cart) {
			c.Items = append(c.Items, domain.CartItem{
				ID:        pendingID,
				ProductID: input.ProductID,
				VariantID: input.VariantID,
				Quantity:  input.Quantity,
				UnitPrice: input.UnitPrice,
				LineTotal: input.UnitPrice * int64(input.Quantity),
			})
			c.Summary.Subtotal = c.Subtotal()
			c.Summary.ItemCount = c.ItemCount()
		},
		func(ctx context.Context, token string) (*domain.Cart, error) {
			return s.client.AddItem(ctx, token, api.AddItemRequest{
				ProductID: input.ProductID,
				VariantID: input.VariantID,
				Quantity:  input.Quantity,
			})
		},
	)
}

// UpdateItem optimistically changes a line's quantity. Quantity 0 removes the
// line. A second update on the same item queues behind the first.
func (s *Store) UpdateItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.Validation("item id is required")
	}
	if quantity < 0 {
		return nil, apperrors.Validation("quantity must not be negative")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.Validation(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	return s.mutate(ctx, "update_item", itemID,
		func(c *domain.Cart) {
			i := c.FindItemIndex(itemID)
			if i < 0 {
				return
			}
			if quantity == 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = quantity
				c.Items[i].LineTotal = c.Items[i].UnitPrice * int64(quantity)
			}
			c.Summary.Subtotal = c.Subtotal()
			c.Summary.ItemCount = c.ItemCount()
		},
		func(ctx context.Context, token string) (*domain.Cart, error) {
			if quantity == 0 {
				return s.client.RemoveItem(ctx, token, itemID)
			}
			return s.client.UpdateItem(ctx, token, itemID, quantity)
		},
	)
}

// RemoveItem optimistically deletes a line.
func (s *Store) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.Validation("item id is required")
	}

	return s.mutate(ctx, "remove_item", itemID,
		func(c *domain.Cart) {
			if i := c.FindItemIndex(itemID); i >= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			}
			c.Summary.Subtotal = c.Subtotal()
			c.Summary.ItemCount = c.ItemCount()
		},
		func(ctx context.Context, token string) (*domain.Cart, error) {
			return s.client.RemoveItem(ctx, token, itemID)
		},
	)
}

// Clear optimistically empties the cart.
func (s *Store) Clear(ctx context.Context) (*domain.Cart, error) {
	return s.mutate(ctx, "clear", "*",
		func(c *domain.Cart) {
			c.Items = []domain.CartItem{}
			c.Summary = domain.CartSummary{}
		},
		func(ctx context.Context, token string) (*domain.Cart, error) {
			if err := s.client.ClearCart(ctx, token); err != nil {
				return nil, err
			}
			return domain.EmptyCart(), nil
		},
	)
}

// Reset drops the local reflection and marks the cached cart stale. Used
// after a completed order, when the server cart has been consumed.
func (s *Store) Reset(ctx context.Context) {
	token, err := s.identity.Token(ctx)
	if err == nil {
		s.cache.Invalidate(cacheKey(token))
	}
	s.mu.Lock()
	s.confirmed = domain.EmptyCart()
	s.mu.Unlock()
}

// mutate runs one optimistic mutation: register the patch as pending so the
// local view shows it, dispatch the call under the shared retry policy, then
// either promote the server response to the confirmed baseline or drop the
// patch. Either way only this mutation's own contribution changes; patches
// other mutations still have in flight are rebased onto whatever baseline
// results.
func (s *Store) mutate(
	ctx context.Context,
	op, lockKey string,
	patch func(c *domain.Cart),
	call func(ctx context.Context, token string) (*domain.Cart, error),
) (*domain.Cart, error) {
	token, err := s.identity.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	release := s.locks.acquire(lockKey)
	defer release()

	// Make sure there is a confirmed cart to patch.
	s.mu.RLock()
	current := s.confirmed
	s.mu.RUnlock()
	if current == nil {
		if _, err := s.Fetch(ctx); err != nil {
			return nil, err
		}
	}

	m := newMutation(op, patch)
	s.mu.Lock()
	s.pending = append(s.pending, m)
	s.mu.Unlock()

	confirmed, err := s.cache.Call(ctx, op, func(ctx context.Context) (*domain.Cart, error) {
		return call(ctx, token)
	})
	if err != nil {
		s.mu.Lock()
		s.removePendingLocked(m)
		m.rollback()
		s.mu.Unlock()

		s.logger.WarnContext(ctx, "cart mutation rolled back",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)

		if errors.Is(err, apperrors.ErrSessionExpired) {
			if _, rerr := s.refetchWithNewSession(ctx); rerr != nil {
				s.logger.ErrorContext(ctx, "session recovery failed",
					slog.String("error", rerr.Error()),
				)
			}
		}
		return nil, err
	}

	// Reconciliation: the server response replaces the optimistic patch
	// wholesale and becomes the confirmed baseline. Subtotal, shipping and
	// tax are server-computed.
	s.mu.Lock()
	s.confirmed = confirmed
	s.removePendingLocked(m)
	m.commit()
	s.mu.Unlock()
	s.cache.Put(cacheKey(token), confirmed)

	s.logger.InfoContext(ctx, "cart mutation committed",
		slog.String("op", op),
		slog.Int("items", len(confirmed.Items)),
		slog.Int64("subtotal", confirmed.Summary.Subtotal),
	)

	return confirmed.Clone(), nil
}

// refetchWithNewSession reissues the session identity and fetches the cart
// scoped to the new token. The old cart belonged to the dead session and is
// discarded.
func (s *Store) refetchWithNewSession(ctx context.Context) (*domain.Cart, error) {
	token, err := s.identity.Reissue(ctx)
	if err != nil {
		return nil, fmt.Errorf("reissue session: %w", err)
	}

	s.logger.InfoContext(ctx, "session reissued after expiry",
		slog.String("session_id", token),
	)

	cart, err := s.cache.Get(ctx, cacheKey(token), func(ctx context.Context) (*domain.Cart, error) {
		return s.client.GetCart(ctx, token)
	}, fetchcache.Options{})
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	return cart.Clone(), nil
}

func (s *Store) setCart(cart *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = cart
}

// removePendingLocked drops m from the pending patches. Callers hold mu.
func (s *Store) removePendingLocked(m *mutation) {
	for i, p := range s.pending {
		if p == m {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}
