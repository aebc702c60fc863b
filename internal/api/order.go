package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Project2Studios/storefront-client/internal/domain"
)

// CreateOrderRequest converts a checkout session into an order. The session
// id doubles as the idempotency key: the server must return the original
// order on a repeated call rather than create a duplicate.
type CreateOrderRequest struct {
	SessionID         string `json:"session_id"`
	PaymentMethodID   string `json:"payment_method_id"`
	SavePaymentMethod bool   `json:"save_payment_method"`
}

// CreateOrder submits the order-creation call. The session id is sent both in
// the body and in the Idempotency-Key header so the contract is explicit on
// the wire.
func (c *Client) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*domain.Order, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/create-order", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(SessionHeader, token)
	httpReq.Header.Set(IdempotencyKeyHeader, req.SessionID)

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call order api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, parseError(resp, "order")
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &order, nil
}
