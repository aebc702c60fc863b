package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes the storefront engine distinguishes.
// Callers branch with errors.Is; the class decides retry and recovery behavior.
var (
	// ErrValidation marks user-correctable bad input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing resource. On a checkout session fetch it
	// triggers idempotent auto-create rather than surfacing to the user.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict marks a stock or session mismatch. Triggers a reconciliation
	// refetch, never a blind retry.
	ErrConflict = errors.New("conflict")
	// ErrTransient marks a network or timeout failure. Retried with bounded
	// exponential backoff inside the fetch cache.
	ErrTransient = errors.New("transient network error")
	// ErrSessionExpired marks an invalidated shopper session. The cart store
	// reissues the session identity and refetches; checkout restarts from Cart.
	ErrSessionExpired = errors.New("session expired")
	// ErrPaymentDeclined is terminal for the attempt. The shopper must resubmit
	// payment; no automatic retry.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPartialFailure marks a captured payment with a failed order record.
	// Retrying risks a second charge, so it is never retried automatically.
	ErrPartialFailure = errors.New("payment captured but order creation failed")
	// ErrRateLimited marks an HTTP 429. No retry semantics are defined for it.
	ErrRateLimited = errors.New("rate limited")
)

// AppError represents a structured engine error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a user-correctable input error. The message is safe to
// show verbatim.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// NotFound creates a missing-resource error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Conflict creates a stock/session mismatch error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Transient creates a retryable network error wrapping the transport failure.
func Transient(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "a temporary network error occurred",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrTransient, err),
	}
}

// SessionExpired creates a session-invalidated error.
func SessionExpired(message string) *AppError {
	return &AppError{
		Code:    "SESSION_EXPIRED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrSessionExpired,
	}
}

// PaymentDeclined creates a terminal payment failure with the gateway's reason.
func PaymentDeclined(reason string) *AppError {
	return &AppError{
		Code:    "PAYMENT_DECLINED",
		Message: reason,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPaymentDeclined,
	}
}

// PartialFailure creates the captured-payment/failed-order error. It carries
// the underlying order failure for support diagnostics.
func PartialFailure(err error) *AppError {
	return &AppError{
		Code:    "PARTIAL_FAILURE",
		Message: "your payment was received but the order could not be recorded; please contact support",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPartialFailure, err),
	}
}

// RateLimited creates a 429 error. Surfaced verbatim, never retried.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether the error may be retried automatically.
// Only transient transport failures qualify; everything else either needs
// user input, a reconciliation refetch, or an explicit support path.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// UserMessage extracts the human-readable message to surface in a
// notification. Falls back to a generic message for unclassified errors.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "something went wrong, please try again"
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
