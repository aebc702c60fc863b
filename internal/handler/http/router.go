package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Project2Studios/storefront-client/pkg/health"
	"github.com/Project2Studios/storefront-client/pkg/middleware"
)

// NewRouter creates a chi router with the BFF surface registered.
func NewRouter(
	handler *StorefrontHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", handler.GetCart)
			r.Delete("/", handler.ClearCart)

			r.Post("/items", handler.AddItem)
			r.Put("/items/{itemID}", handler.UpdateItem)
			r.Delete("/items/{itemID}", handler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/session", handler.GetCheckoutSession)
			r.Put("/session", handler.UpdateCheckoutSession)

			r.Post("/steps/{step}/complete", handler.CompleteStep)
			r.Get("/steps/{step}/access", handler.StepAccess)

			r.Post("/shipping-methods", handler.ShippingMethods)
			r.Post("/order", handler.CreateOrder)
		})
	})

	return r
}
