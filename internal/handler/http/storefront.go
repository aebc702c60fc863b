package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Project2Studios/storefront-client/internal/cart"
	"github.com/Project2Studios/storefront-client/internal/checkout"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/order"
	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
	"github.com/Project2Studios/storefront-client/pkg/validator"
)

// StorefrontHandler exposes the engine's operations as the thin BFF surface.
// All real behavior lives in the stores; handlers only decode, delegate, and
// encode.
type StorefrontHandler struct {
	carts     *cart.Store
	checkouts *checkout.Store
	steps     *checkout.StepMachine
	orders    *order.Service
	logger    *slog.Logger
}

// NewStorefrontHandler creates the BFF handler.
func NewStorefrontHandler(
	carts *cart.Store,
	checkouts *checkout.Store,
	steps *checkout.StepMachine,
	orders *order.Service,
	logger *slog.Logger,
) *StorefrontHandler {
	return &StorefrontHandler{
		carts:     carts,
		checkouts: checkouts,
		steps:     steps,
		orders:    orders,
		logger:    logger,
	}
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- Cart handlers ---

// GetCart handles GET /api/v1/cart
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Fetch(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: c})
}

// AddItem handles POST /api/v1/cart/items
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input cart.AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(input); err != nil {
		h.writeValidationError(w, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: c})
}

// UpdateItemRequest is the JSON request body for updating a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// UpdateItem handles PUT /api/v1/cart/items/{itemID}
func (h *StorefrontHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	c, err := h.carts.UpdateItem(r.Context(), itemID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: c})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: c})
}

// ClearCart handles DELETE /api/v1/cart
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: c})
}

// --- Checkout handlers ---

// GetCheckoutSession handles GET /api/v1/checkout/session
func (h *StorefrontHandler) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkouts.GetOrCreate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: sess})
}

// UpdateCheckoutSession handles PUT /api/v1/checkout/session
func (h *StorefrontHandler) UpdateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var patch domain.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	sess, err := h.checkouts.Update(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: sess})
}

// CompleteStep handles POST /api/v1/checkout/steps/{step}/complete
func (h *StorefrontHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	step := domain.CheckoutStep(chi.URLParam(r, "step"))
	if !domain.IsValidStep(step) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "unknown checkout step"},
		})
		return
	}

	sess, err := h.checkouts.CompleteStep(r.Context(), step)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: sess})
}

// StepAccess handles GET /api/v1/checkout/steps/{step}/access
func (h *StorefrontHandler) StepAccess(w http.ResponseWriter, r *http.Request) {
	step := domain.CheckoutStep(chi.URLParam(r, "step"))
	writeJSON(w, http.StatusOK, response{Data: map[string]any{
		"step":       step,
		"accessible": h.steps.CanAccess(step),
		"current":    h.steps.Current(),
	}})
}

// ShippingMethods handles POST /api/v1/checkout/shipping-methods
func (h *StorefrontHandler) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	var address domain.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	methods, err := h.checkouts.ShippingMethods(r.Context(), address, h.carts.Cart().Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: methods})
}

// CreateOrder handles POST /api/v1/checkout/order
func (h *StorefrontHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(input); err != nil {
		h.writeValidationError(w, err)
		return
	}

	ord, err := h.orders.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: ord})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *StorefrontHandler) writeValidationError(w http.ResponseWriter, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: verr.Error(),
				Fields:  verr.Fields(),
			},
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()},
	})
}

func (h *StorefrontHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	code := "INTERNAL_ERROR"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: apperrors.UserMessage(err)},
	})
}
