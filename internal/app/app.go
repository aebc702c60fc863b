package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Project2Studios/storefront-client/internal/api"
	"github.com/Project2Studios/storefront-client/internal/cart"
	"github.com/Project2Studios/storefront-client/internal/checkout"
	"github.com/Project2Studios/storefront-client/internal/config"
	"github.com/Project2Studios/storefront-client/internal/domain"
	"github.com/Project2Studios/storefront-client/internal/fetchcache"
	gatewaymock "github.com/Project2Studios/storefront-client/internal/gateway/mock"
	handler "github.com/Project2Studios/storefront-client/internal/handler/http"
	"github.com/Project2Studios/storefront-client/internal/order"
	"github.com/Project2Studios/storefront-client/internal/session"
	"github.com/Project2Studios/storefront-client/pkg/health"
	"github.com/Project2Studios/storefront-client/pkg/httpclient"
	"github.com/Project2Studios/storefront-client/pkg/tracing"
)

// App wires together the storefront client engine and runs the BFF surface.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Optional tracing.
	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront-client",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSample,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Durable client storage for the session identity and step drafts.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Transport to the commerce API, guarded by a circuit breaker.
	base := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.HTTPTimeout) * time.Second,
		MaxConnsPerHost: 100,
	})
	breaker := httpclient.NewCircuitBreakerClient(base,
		httpclient.DefaultCircuitBreakerConfig("commerce-api"), logger)
	client := api.NewClient(breaker, cfg.CommerceAPIURL, logger)

	// Build the dependency graph: identity → caches → stores → order flow.
	store := session.NewRedisStore(rdb, cfg.SessionNamespace, cfg.SessionTTLDuration())
	identity := session.NewIdentity(store, logger)

	cartCache := fetchcache.New[*domain.Cart](fetchcache.Config{
		Name:          "cart",
		TTL:           time.Duration(cfg.CartCacheTTL) * time.Second,
		MaxRetries:    cfg.MaxRetries,
		RetryBaseWait: cfg.RetryBaseWait(),
	}, logger)
	checkoutCache := fetchcache.New[*domain.CheckoutSession](fetchcache.Config{
		Name:          "checkout",
		TTL:           time.Duration(cfg.CheckoutCacheTTL) * time.Second,
		MaxRetries:    cfg.MaxRetries,
		RetryBaseWait: cfg.RetryBaseWait(),
	}, logger)

	carts := cart.NewStore(identity, client, cartCache, logger)
	checkouts := checkout.NewStore(identity, client, checkoutCache, logger)
	steps := checkout.NewStepMachine(checkouts)
	orders := order.NewService(identity, carts, checkouts, gatewaymock.New(), client, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// HTTP router.
	storefront := handler.NewStorefrontHandler(carts, checkouts, steps, orders, logger)
	router := handler.NewRouter(storefront, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
