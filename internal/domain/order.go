package domain

import "time"

// Order is the immutable record created from a checkout session and cart at
// the moment of purchase. The server creates exactly one order per checkout
// session id; a replayed creation call returns the original order.
type Order struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	SessionID   string    `json:"session_id"`
	Total       int64     `json:"total"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}
