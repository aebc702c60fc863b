package api

import (
	"context"
	"net/http"

	"github.com/Project2Studios/storefront-client/internal/domain"
)

// GetCheckoutSession fetches a checkout session by id. A 404 surfaces as
// an ErrNotFound-classed error; the store reacts by creating the session.
func (c *Client) GetCheckoutSession(ctx context.Context, token, id string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := c.do(ctx, http.MethodGet, "/checkout/session/"+id, token, nil, &session, "checkout"); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateCheckoutSession creates an empty checkout session with the given id.
func (c *Client) CreateCheckoutSession(ctx context.Context, token, id string) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/session/"+id, token, nil, &session, "checkout"); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateCheckoutSession applies a partial update and returns the
// authoritative session, totals recomputed server-side.
func (c *Client) UpdateCheckoutSession(ctx context.Context, token, id string, patch domain.SessionPatch) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := c.do(ctx, http.MethodPut, "/checkout/session/"+id, token, patch, &session, "checkout"); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteCheckoutSession instructs the server to discard the session after a
// completed order.
func (c *Client) DeleteCheckoutSession(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/checkout/session/"+id, token, nil, nil, "checkout")
}

// ShippingMethodsRequest quotes delivery options for an address and cart contents.
type ShippingMethodsRequest struct {
	Address domain.Address    `json:"address"`
	Items   []domain.CartItem `json:"items"`
}

type shippingMethodsResponse struct {
	Methods []domain.ShippingMethod `json:"methods"`
}

// ShippingMethods returns the candidate shipping methods for an address and
// the current cart items.
func (c *Client) ShippingMethods(ctx context.Context, token string, req ShippingMethodsRequest) ([]domain.ShippingMethod, error) {
	var resp shippingMethodsResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/shipping-methods", token, req, &resp, "shipping"); err != nil {
		return nil, err
	}
	return resp.Methods, nil
}

// CalculateTaxRequest asks the tax collaborator for the tax on an amount
// shipped to an address.
type CalculateTaxRequest struct {
	Address domain.Address `json:"address"`
	Amount  int64          `json:"amount"`
}

type calculateTaxResponse struct {
	Tax int64 `json:"tax"`
}

// CalculateTax returns the tax (in cents) for the given address and amount.
func (c *Client) CalculateTax(ctx context.Context, token string, req CalculateTaxRequest) (int64, error) {
	var resp calculateTaxResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/calculate-tax", token, req, &resp, "tax"); err != nil {
		return 0, err
	}
	return resp.Tax, nil
}
