// Package fetchcache provides the request layer underneath the cart and
// checkout stores: a keyed cache with TTL freshness, in-flight request
// deduplication, and bounded exponential-backoff retry for transient
// failures. One entry exists per distinct request key and at most one
// request per key is in flight at any time.
package fetchcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// State describes the lifecycle of a cache entry.
type State string

const (
	// StateFresh means a value is cached and within its TTL.
	StateFresh State = "fresh"
	// StateStale means the entry must be refetched on the next Get.
	StateStale State = "stale"
	// StatePending means a request for the key is currently in flight.
	StatePending State = "pending"
	// StateMissing means no entry exists for the key.
	StateMissing State = "missing"
)

// Fetcher produces the value for a key, usually via a network call.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Config holds cache-wide defaults. Per-call options override them.
type Config struct {
	// Name identifies this cache in metrics.
	Name string
	// TTL is how long a stored value counts as fresh.
	TTL time.Duration
	// MaxRetries bounds automatic retries of transient failures.
	MaxRetries int
	// RetryBaseWait is the first backoff delay; attempt n waits base << n.
	RetryBaseWait time.Duration
}

// DefaultConfig returns the standard cache settings.
func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		TTL:           30 * time.Second,
		MaxRetries:    3,
		RetryBaseWait: time.Second,
	}
}

// NoRetries disables automatic retries for a single call.
const NoRetries = -1

// Options adjusts a single Get call.
type Options struct {
	// TTL overrides the cache TTL when > 0.
	TTL time.Duration
	// NoDedupe issues a dedicated request even if one is already in flight.
	NoDedupe bool
	// MaxRetries overrides the cache retry bound when > 0. Zero inherits the
	// cache default; NoRetries turns retries off for this call.
	MaxRetries int
}

type entry[V any] struct {
	value     V
	timestamp time.Time
	ttl       time.Duration
	stale     bool
}

// fresh reports whether the entry still counts as fresh at time t, judged
// against the TTL it was stored under.
func (e *entry[V]) fresh(t time.Time) bool {
	return !e.stale && t.Sub(e.timestamp) < e.ttl
}

// flight is the shared handle for one in-flight request. Every concurrent
// caller for the key awaits the same handle; done is closed exactly once by
// the goroutine that owns the network call.
type flight[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Cache is a request cache for values of type V. It is safe for concurrent
// use; the in-flight map guarantees a single writer per key.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	inflight map[string]*flight[V]

	cfg    Config
	logger *slog.Logger

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a cache with the given configuration.
func New[V any](cfg Config, logger *slog.Logger) *Cache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig(cfg.Name).TTL
	}
	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = time.Second
	}
	return &Cache[V]{
		entries:  make(map[string]*entry[V]),
		inflight: make(map[string]*flight[V]),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the value for key. A fresh cached value is returned without a
// network call. If a request for the key is already in flight, the caller
// awaits the shared handle (unless opts.NoDedupe is set) so exactly one
// network call is issued regardless of caller count. Failures are never
// cached; transient ones are retried with exponential backoff first.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch Fetcher[V], opts Options) (V, error) {
	ttl := c.cfg.TTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.fresh(c.now()) {
		value := e.value
		c.mu.Unlock()
		cacheHits.WithLabelValues(c.cfg.Name).Inc()
		return value, nil
	}

	if f, ok := c.inflight[key]; ok && !opts.NoDedupe {
		c.mu.Unlock()
		cacheDedupWaits.WithLabelValues(c.cfg.Name).Inc()
		return c.await(ctx, f)
	}

	f := &flight[V]{done: make(chan struct{})}
	if !opts.NoDedupe {
		c.inflight[key] = f
	}
	c.mu.Unlock()

	cacheMisses.WithLabelValues(c.cfg.Name).Inc()

	// The request outlives the initiating caller: once dispatched it is not
	// canceled by that caller's context, and late waiters still share its
	// outcome.
	go func() {
		value, err := c.fetchWithRetry(context.WithoutCancel(ctx), key, fetch, opts)

		c.mu.Lock()
		if !opts.NoDedupe {
			delete(c.inflight, key)
		}
		if err == nil {
			c.entries[key] = &entry[V]{value: value, timestamp: c.now(), ttl: ttl}
		}
		c.mu.Unlock()

		f.value, f.err = value, err
		close(f.done)
	}()

	return c.await(ctx, f)
}

// await blocks until the shared flight resolves or the waiter's own context
// is canceled. Cancellation abandons only this waiter; the flight continues.
func (c *Cache[V]) await(ctx context.Context, f *flight[V]) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// fetchWithRetry runs the fetcher, retrying transient failures with
// exponential backoff (base << attempt) up to the retry bound. Other failure
// classes propagate immediately.
func (c *Cache[V]) fetchWithRetry(ctx context.Context, key string, fetch Fetcher[V], opts Options) (V, error) {
	maxRetries := c.cfg.MaxRetries
	switch {
	case opts.MaxRetries > 0:
		maxRetries = opts.MaxRetries
	case opts.MaxRetries < 0:
		maxRetries = 0
	}

	var value V
	var err error

	for attempt := 0; ; attempt++ {
		value, err = fetch(ctx)
		if err == nil {
			return value, nil
		}
		if !apperrors.IsRetryable(err) || attempt >= maxRetries {
			return value, err
		}

		wait := c.cfg.RetryBaseWait << uint(attempt)
		cacheRetries.WithLabelValues(c.cfg.Name).Inc()
		c.logger.WarnContext(ctx, "transient fetch failure, backing off",
			slog.String("cache", c.cfg.Name),
			slog.String("key", key),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		if serr := c.sleep(ctx, wait); serr != nil {
			return value, serr
		}
	}
}

// Call runs the fetcher under the cache's retry policy without consulting or
// populating the cache. Mutations dispatch through Call so reads and writes
// share one backoff policy; the caller stores the reconciled result with Put.
func (c *Cache[V]) Call(ctx context.Context, op string, fetch Fetcher[V]) (V, error) {
	return c.fetchWithRetry(ctx, op, fetch, Options{})
}

// Put stores a server-confirmed value for key with a fresh timestamp,
// replacing any previous value.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[V]{value: value, timestamp: c.now(), ttl: c.cfg.TTL}
}

// Invalidate marks the entry stale so the next Get bypasses the cache.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// StateOf reports the entry state for key.
func (c *Cache[V]) StateOf(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[key]; ok {
		return StatePending
	}
	e, ok := c.entries[key]
	if !ok {
		return StateMissing
	}
	if !e.fresh(c.now()) {
		return StateStale
	}
	return StateFresh
}
