package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project2Studios/storefront-client/internal/domain"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
	"github.com/Project2Studios/storefront-client/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(httpclient.New(httpclient.DefaultConfig()), srv.URL, logger)
}

func TestGetCartSendsSessionHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get(SessionHeader))

		_ = json.NewEncoder(w).Encode(domain.Cart{
			Items:   []domain.CartItem{{ID: "item-1", Quantity: 2, LineTotal: 5000}},
			Summary: domain.CartSummary{Subtotal: 5000, ItemCount: 2},
		})
	})

	cart, err := client.GetCart(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cart.Summary.Subtotal)
	assert.Len(t, cart.Items, 1)
}

func TestAddItemPostsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req AddItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, AddItemRequest{ProductID: "prod-1", VariantID: "var-1", Quantity: 2}, req)

		_ = json.NewEncoder(w).Encode(domain.Cart{})
	})

	_, err := client.AddItem(context.Background(), "tok-1", AddItemRequest{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 2,
	})
	require.NoError(t, err)
}

func TestUpdateAndRemoveItemPaths(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewEncoder(w).Encode(domain.Cart{})
	})

	_, err := client.UpdateItem(context.Background(), "tok-1", "item-1", 3)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/cart/items/item-1", gotPath)

	_, err = client.RemoveItem(context.Background(), "tok-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/cart/items/item-1", gotPath)
}

func TestCheckoutSessionRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/session/s-123", r.URL.Path)

		switch r.Method {
		case http.MethodGet, http.MethodPost:
			_ = json.NewEncoder(w).Encode(domain.CheckoutSession{ID: "s-123"})
		case http.MethodPut:
			var patch domain.SessionPatch
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			require.NotNil(t, patch.OrderNotes)
			sess := domain.CheckoutSession{ID: "s-123", OrderNotes: *patch.OrderNotes}
			_ = json.NewEncoder(w).Encode(sess)
		}
	})

	sess, err := client.GetCheckoutSession(context.Background(), "tok-1", "s-123")
	require.NoError(t, err)
	assert.Equal(t, "s-123", sess.ID)

	notes := "leave at the door"
	sess, err = client.UpdateCheckoutSession(context.Background(), "tok-1", "s-123", domain.SessionPatch{OrderNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, sess.OrderNotes)
}

func TestCreateOrderSetsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/create-order", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get(SessionHeader))
		assert.Equal(t, "s-123", r.Header.Get(IdempotencyKeyHeader))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Order{ID: "ord-1", SessionID: "s-123", Total: 5950})
	})

	ord, err := client.CreateOrder(context.Background(), "tok-1", CreateOrderRequest{
		SessionID:       "s-123",
		PaymentMethodID: "pm-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", ord.ID)
	assert.Equal(t, int64(5950), ord.Total)
}

func TestErrorResponsesMapToTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"404", http.StatusNotFound, `{"message":"checkout session not found"}`, apperrors.ErrNotFound},
		{"401", http.StatusUnauthorized, `{"message":"session expired"}`, apperrors.ErrSessionExpired},
		{"409", http.StatusConflict, `{"message":"insufficient stock"}`, apperrors.ErrConflict},
		{"500", http.StatusInternalServerError, `{"message":"boom"}`, apperrors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetCheckoutSession(context.Background(), "tok-1", "s-123")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestShippingMethodsAndTax(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/checkout/shipping-methods":
			_ = json.NewEncoder(w).Encode(shippingMethodsResponse{
				Methods: []domain.ShippingMethod{{ID: "std", Name: "Standard", Price: 500}},
			})
		case "/checkout/calculate-tax":
			var req CalculateTaxRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(calculateTaxResponse{Tax: req.Amount / 10})
		default:
			http.NotFound(w, r)
		}
	})

	methods, err := client.ShippingMethods(context.Background(), "tok-1", ShippingMethodsRequest{})
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "std", methods[0].ID)

	tax, err := client.CalculateTax(context.Background(), "tok-1", CalculateTaxRequest{Amount: 5500})
	require.NoError(t, err)
	assert.Equal(t, int64(550), tax)
}
