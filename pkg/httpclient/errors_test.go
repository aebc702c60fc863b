package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

func errorResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"401 session expired", http.StatusUnauthorized, `{"message":"session expired"}`, apperrors.ErrSessionExpired},
		{"404 not found", http.StatusNotFound, `{"message":"checkout session not found"}`, apperrors.ErrNotFound},
		{"409 conflict", http.StatusConflict, `{"message":"insufficient stock"}`, apperrors.ErrConflict},
		{"429 rate limited", http.StatusTooManyRequests, `{"message":"too many requests"}`, apperrors.ErrRateLimited},
		{"422 validation", http.StatusUnprocessableEntity, `{"message":"quantity exceeds available stock"}`, apperrors.ErrValidation},
		{"400 validation", http.StatusBadRequest, `{"message":"bad request"}`, apperrors.ErrValidation},
		{"500 transient", http.StatusInternalServerError, `{"message":"boom"}`, apperrors.ErrTransient},
		{"503 transient", http.StatusServiceUnavailable, ``, apperrors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(errorResponse(tt.status, tt.body), "cart")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestParseResponseErrorMessageVerbatim(t *testing.T) {
	// 4xx messages are shown to the shopper exactly as the server sent them.
	err := ParseResponseError(errorResponse(http.StatusBadRequest, `{"message":"quantity exceeds available stock"}`), "cart")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "quantity exceeds available stock", appErr.Message)
}

func TestParseResponseErrorUnparseableBody(t *testing.T) {
	err := ParseResponseError(errorResponse(http.StatusBadGateway, "<html>bad gateway</html>"), "cart")

	require.True(t, errors.Is(err, apperrors.ErrTransient))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	// Falls back to a generated message naming the API and status.
	assert.Contains(t, appErr.Err.Error(), "cart")
	assert.Contains(t, appErr.Err.Error(), "502")
}

func TestParseResponseErrorRetrySemantics(t *testing.T) {
	// Only server errors feed the retry loop; 429 does not.
	assert.True(t, apperrors.IsRetryable(ParseResponseError(errorResponse(500, ""), "cart")))
	assert.False(t, apperrors.IsRetryable(ParseResponseError(errorResponse(429, ""), "cart")))
	assert.False(t, apperrors.IsRetryable(ParseResponseError(errorResponse(409, ""), "cart")))
	assert.False(t, apperrors.IsRetryable(ParseResponseError(errorResponse(401, ""), "cart")))
}
