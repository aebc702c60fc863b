package order

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project2Studios/storefront-client/internal/api"
	"github.com/Project2Studios/storefront-client/internal/cart"
	"github.com/Project2Studios/storefront-client/internal/checkout"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/fetchcache"
	"github.com/Project2Studios/storefront-client/internal/gateway"
	"github.com/Project2Studios/storefront-client/internal/session"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// --- Collaborator stubs ---

// stubGateway reports a canned confirmation outcome and counts attempts.
type stubGateway struct {
	result *gateway.ConfirmResult
	err    error
	calls  atomic.Int32
	lastIn *gateway.ConfirmInput
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Confirm(_ context.Context, in *gateway.ConfirmInput) (*gateway.ConfirmResult, error) {
	g.calls.Add(1)
	g.lastIn = in
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

// stubOrderAPI creates at most one order per session id, mirroring the
// server's idempotency contract, and can be primed to fail first.
type stubOrderAPI struct {
	failWith error
	orders   map[string]*domain.Order
	created  atomic.Int32
	calls    atomic.Int32
	lastReq  api.CreateOrderRequest
}

func newStubOrderAPI() *stubOrderAPI {
	return &stubOrderAPI{orders: make(map[string]*domain.Order)}
}

func (s *stubOrderAPI) CreateOrder(_ context.Context, _ string, req api.CreateOrderRequest) (*domain.Order, error) {
	s.calls.Add(1)
	s.lastReq = req
	if s.failWith != nil {
		err := s.failWith
		s.failWith = nil
		return nil, err
	}
	if ord, ok := s.orders[req.SessionID]; ok {
		return ord, nil
	}
	s.created.Add(1)
	ord := &domain.Order{
		ID:          "ord-" + req.SessionID,
		OrderNumber: "SO-1000",
		SessionID:   req.SessionID,
		Total:       5950,
		Currency:    "USD",
		CreatedAt:   time.Now().UTC(),
	}
	s.orders[req.SessionID] = ord
	return ord, nil
}

// cartStubAPI serves a one-line cart; the order flow never mutates it.
type cartStubAPI struct{}

func (cartStubAPI) GetCart(context.Context, string) (*domain.Cart, error) {
	return &domain.Cart{
		Items: []domain.CartItem{
			{ID: "item-1", ProductID: "prod-1", VariantID: "var-1", Quantity: 2, UnitPrice: 2500, LineTotal: 5000},
		},
		Summary: domain.CartSummary{Subtotal: 5000, ItemCount: 2},
	}, nil
}
func (cartStubAPI) AddItem(context.Context, string, api.AddItemRequest) (*domain.Cart, error) {
	return nil, errors.New("not used")
}
func (cartStubAPI) UpdateItem(context.Context, string, string, int) (*domain.Cart, error) {
	return nil, errors.New("not used")
}
func (cartStubAPI) RemoveItem(context.Context, string, string) (*domain.Cart, error) {
	return nil, errors.New("not used")
}
func (cartStubAPI) ClearCart(context.Context, string) error { return nil }

// checkoutStubAPI serves a ready-to-order session and records discards.
type checkoutStubAPI struct {
	session   *domain.CheckoutSession
	deleteErr error
	deleteCnt atomic.Int32
}

func (c *checkoutStubAPI) GetCheckoutSession(_ context.Context, _, id string) (*domain.CheckoutSession, error) {
	sess := c.session.Clone()
	sess.ID = id
	return sess, nil
}
func (c *checkoutStubAPI) CreateCheckoutSession(_ context.Context, _, id string) (*domain.CheckoutSession, error) {
	return &domain.CheckoutSession{ID: id}, nil
}
func (c *checkoutStubAPI) UpdateCheckoutSession(context.Context, string, string, domain.SessionPatch) (*domain.CheckoutSession, error) {
	return nil, errors.New("not used")
}
func (c *checkoutStubAPI) DeleteCheckoutSession(context.Context, string, string) error {
	c.deleteCnt.Add(1)
	err := c.deleteErr
	c.deleteErr = nil
	return err
}
func (c *checkoutStubAPI) ShippingMethods(context.Context, string, api.ShippingMethodsRequest) ([]domain.ShippingMethod, error) {
	return nil, errors.New("not used")
}
func (c *checkoutStubAPI) CalculateTax(context.Context, string, api.CalculateTaxRequest) (int64, error) {
	return 0, errors.New("not used")
}

// --- Harness ---

type harness struct {
	service     *Service
	identity    *session.Identity
	store       *session.MemoryStore
	carts       *cart.Store
	checkouts   *checkout.Store
	gateway     *stubGateway
	orderAPI    *stubOrderAPI
	checkoutAPI *checkoutStubAPI
}

func readySession() *domain.CheckoutSession {
	addr := domain.Address{
		FullName:    "Ada Lovelace",
		AddressLine: "1 Analytical Way",
		City:        "London",
		PostalCode:  "N1 9GU",
		Country:     "GB",
	}
	return &domain.CheckoutSession{
		ShippingAddress: &addr,
		PaymentMethod:   &domain.PaymentMethodSelection{MethodID: "pm-1", Kind: "card"},
		TermsAccepted:   true,
		Totals:          domain.Totals{Subtotal: 5000, Shipping: 500, Tax: 450, Total: 5950},
		StepCompletion:  []domain.CheckoutStep{domain.StepCart, domain.StepShipping, domain.StepPayment},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	memStore := session.NewMemoryStore()
	identity := session.NewIdentity(memStore, logger)

	cartCache := fetchcache.New[*domain.Cart](fetchcache.Config{Name: "cart-test", TTL: 30 * time.Second}, logger)
	carts := cart.NewStore(identity, cartStubAPI{}, cartCache, logger)

	checkoutAPI := &checkoutStubAPI{session: readySession()}
	checkoutCache := fetchcache.New[*domain.CheckoutSession](fetchcache.Config{Name: "checkout-test", TTL: 30 * time.Second}, logger)
	checkouts := checkout.NewStore(identity, checkoutAPI, checkoutCache, logger)

	gw := &stubGateway{result: &gateway.ConfirmResult{PaymentID: "pay-1", Status: gateway.StatusSucceeded}}
	orderAPI := newStubOrderAPI()

	return &harness{
		service:     NewService(identity, carts, checkouts, gw, orderAPI, logger),
		identity:    identity,
		store:       memStore,
		carts:       carts,
		checkouts:   checkouts,
		gateway:     gw,
		orderAPI:    orderAPI,
		checkoutAPI: checkoutAPI,
	}
}

// prime loads the cart and checkout session so the order preconditions hold.
func (h *harness) prime(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := h.carts.Fetch(ctx)
	require.NoError(t, err)
	_, err = h.checkouts.GetOrCreate(ctx)
	require.NoError(t, err)
}

// --- Tests ---

func TestCreateValidatesInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Create(context.Background(), CreateInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Zero(t, h.gateway.calls.Load())
}

func TestCreateRequiresCheckoutSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Zero(t, h.gateway.calls.Load())
}

func TestCreateRequiresAddressAndTerms(t *testing.T) {
	t.Run("no shipping address", func(t *testing.T) {
		h := newHarness(t)
		h.checkoutAPI.session.ShippingAddress = nil
		h.prime(t)

		_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})

	t.Run("terms not accepted", func(t *testing.T) {
		h := newHarness(t)
		h.checkoutAPI.session.TermsAccepted = false
		h.prime(t)

		_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})
}

func TestCreatePaymentDeclined(t *testing.T) {
	h := newHarness(t)
	h.prime(t)
	h.gateway.result = &gateway.ConfirmResult{
		Status:        gateway.StatusDeclined,
		DeclineReason: "insufficient funds",
	}

	_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentDeclined))
	assert.Equal(t, "insufficient funds", apperrors.UserMessage(err))

	// Nothing was charged; nothing was created or torn down.
	assert.Zero(t, h.orderAPI.calls.Load())
	assert.NotNil(t, h.checkouts.Session())
}

func TestCreateGatewayErrorIsNeverRetried(t *testing.T) {
	h := newHarness(t)
	h.prime(t)
	h.gateway.err = apperrors.Transient(errors.New("gateway timeout"))

	_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
	require.Error(t, err)

	// The outcome is unknown: exactly one confirm attempt, no order call,
	// and no decline/partial classification.
	assert.Equal(t, int32(1), h.gateway.calls.Load())
	assert.Zero(t, h.orderAPI.calls.Load())
	assert.False(t, errors.Is(err, apperrors.ErrPaymentDeclined))
	assert.False(t, errors.Is(err, apperrors.ErrPartialFailure))
}

func TestCreateOrderFailureIsPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.prime(t)
	h.orderAPI.failWith = apperrors.Transient(errors.New("order api down"))

	_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPartialFailure))

	// Even a transient order failure gets exactly one attempt after capture.
	assert.Equal(t, int32(1), h.orderAPI.calls.Load())
	assert.Equal(t, int32(1), h.gateway.calls.Load())

	// The session sticks around for the support path.
	assert.NotNil(t, h.checkouts.Session())
}

func TestCreateSessionExpiredResetsStores(t *testing.T) {
	h := newHarness(t)
	h.prime(t)
	require.NotEmpty(t, h.carts.Cart().Items)
	h.orderAPI.failWith = apperrors.SessionExpired("session expired")

	_, err := h.service.Create(context.Background(), CreateInput{PaymentMethodID: "pm-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSessionExpired))

	// Checkout restarts from the cart step with clean local state.
	assert.Nil(t, h.checkouts.Session())
	assert.Empty(t, h.carts.Cart().Items)
}

func TestCreateSuccessTearsDownSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.prime(t)

	sessID := h.checkouts.Session().ID

	ord, err := h.service.Create(ctx, CreateInput{PaymentMethodID: "pm-1", SavePaymentMethod: true})
	require.NoError(t, err)

	assert.Equal(t, sessID, ord.SessionID)
	assert.Equal(t, int64(5950), ord.Total)

	// The gateway saw the session total and the save flag.
	assert.Equal(t, int64(5950), h.gateway.lastIn.Amount)
	assert.True(t, h.gateway.lastIn.SaveMethod)

	// The order call was keyed by the checkout session id.
	assert.Equal(t, sessID, h.orderAPI.lastReq.SessionID)

	// Teardown: server session discarded, local reflections cleared, identity
	// retired so the next visit starts a fresh session.
	assert.Equal(t, int32(1), h.checkoutAPI.deleteCnt.Load())
	assert.Nil(t, h.checkouts.Session())
	assert.Empty(t, h.carts.Cart().Items)

	persisted, err := h.store.LoadToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRepeatedCreateForSameSessionYieldsOneOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.prime(t)

	// Make the post-order discard fail so the checkout session survives the
	// first attempt and the shopper can resubmit.
	h.checkoutAPI.deleteErr = errors.New("discard failed")

	first, err := h.service.Create(ctx, CreateInput{PaymentMethodID: "pm-1"})
	require.NoError(t, err)
	require.NotNil(t, h.checkouts.Session(), "failed discard leaves the session in place")

	second, err := h.service.Create(ctx, CreateInput{PaymentMethodID: "pm-1"})
	require.NoError(t, err)

	// Same idempotency key, same order, exactly one created server-side.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), h.orderAPI.created.Load())
	assert.Equal(t, int32(2), h.orderAPI.calls.Load())
}
