package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// APIErrorResponse mirrors the error body returned by the commerce API. The
// message field is shown verbatim to the shopper for 4xx responses.
type APIErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError from the engine's failure taxonomy. The caller should
// only invoke this when resp.StatusCode indicates an error (i.e., not 2xx).
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, api string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", api, resp.StatusCode, err)
	}

	message := ""
	var apiErr APIErrorResponse
	if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Message != "" {
		message = apiErr.Message
	}
	if message == "" {
		message = fmt.Sprintf("%s returned status %d", api, resp.StatusCode)
	}

	return mapStatusError(resp.StatusCode, message, api)
}

// mapStatusError translates an HTTP status code into the engine's taxonomy.
// 401 means the session header no longer identifies a live session; 404 is
// surfaced as NotFound so session bootstrap can auto-create; 429 carries no
// retry semantics.
func mapStatusError(status int, message, api string) error {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.SessionExpired(message)
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited(message)
	case status >= 400 && status < 500:
		return apperrors.Validation(message)
	case status >= 500:
		return apperrors.Transient(fmt.Errorf("%s server error %d: %s", api, status, message))
	default:
		return fmt.Errorf("%s returned unexpected status %d: %s", api, status, message)
	}
}
