package api

import (
	"context"
	"net/http"

	"github.com/Project2Studios/storefront-client/internal/domain"
)

// AddItemRequest is the payload for adding an item to the server cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest is the payload for changing a cart line's quantity.
// Quantity 0 removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart fetches the cart scoped to the session token.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &cart, "cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem adds a product variant to the cart and returns the authoritative
// cart state.
func (c *Client) AddItem(ctx context.Context, token string, req AddItemRequest) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodPost, "/cart", token, req, &cart, "cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateItem changes a line's quantity and returns the authoritative cart.
func (c *Client) UpdateItem(ctx context.Context, token, itemID string, quantity int) (*domain.Cart, error) {
	var cart domain.Cart
	req := UpdateItemRequest{Quantity: quantity}
	if err := c.do(ctx, http.MethodPut, "/cart/items/"+itemID, token, req, &cart, "cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem deletes a line and returns the authoritative cart.
func (c *Client) RemoveItem(ctx context.Context, token, itemID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodDelete, "/cart/items/"+itemID, token, nil, &cart, "cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart removes every line from the server cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/cart", token, nil, nil, "cart")
}
