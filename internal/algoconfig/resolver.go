package algoconfig

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a loaded configuration is served before the
// store is consulted again.
const DefaultCacheTTL = 30 * time.Second

// Resolver serves the current algorithm configuration from an in-process
// cache with a short TTL, reloading lazily from the store on expiry. A load
// failure falls back to the last-known-good configuration, or to compiled
// defaults when nothing was ever loaded. The cached value is replaced
// atomically under the lock; callers must not mutate the returned config.
type Resolver struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	// now is the clock; replaceable in tests.
	now func() time.Time

	mu       sync.RWMutex
	primary  *AlgoConfig
	canary   *AlgoConfig
	loadedAt time.Time
}

// NewResolver creates a Resolver over the given store. A non-positive ttl
// falls back to DefaultCacheTTL.
func NewResolver(store Store, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the current primary configuration. It never fails: store
// errors degrade to the last-known-good value or compiled defaults.
func (r *Resolver) Get(ctx context.Context) *AlgoConfig {
	primary, _ := r.load(ctx)
	return primary
}

// GetVariant returns the canary variant configuration, or nil when none is
// stored. Like Get, it never fails.
func (r *Resolver) GetVariant(ctx context.Context) *AlgoConfig {
	_, canary := r.load(ctx)
	return canary
}

// Invalidate forces the next read to reload from the store.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.loadedAt = time.Time{}
	r.mu.Unlock()
	r.logger.Info("algo config cache invalidated")
}

func (r *Resolver) load(ctx context.Context) (*AlgoConfig, *AlgoConfig) {
	r.mu.RLock()
	if r.primary != nil && r.now().Sub(r.loadedAt) < r.ttl {
		primary, canary := r.primary, r.canary
		r.mu.RUnlock()
		return primary, canary
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if r.primary != nil && r.now().Sub(r.loadedAt) < r.ttl {
		return r.primary, r.canary
	}

	primary, err := r.store.Load(ctx, KeyPrimary)
	if err != nil {
		if r.primary != nil {
			r.logger.Warn("algo config reload failed, keeping last known good",
				"error", err)
			// Push the TTL forward so a flapping store isn't hit on every run.
			r.loadedAt = r.now()
			return r.primary, r.canary
		}
		r.logger.Warn("algo config load failed, using compiled defaults",
			"error", err)
		primary = Default()
	} else if errs := primary.Validate(); len(errs) > 0 {
		r.logger.Warn("stored algo config is invalid, using compiled defaults",
			"errors", errs)
		primary = Default()
	}

	canary, err := r.store.Load(ctx, KeyCanary)
	if err != nil {
		if err != ErrConfigNotFound {
			r.logger.Warn("canary config load failed", "error", err)
		}
		canary = nil
	}

	r.primary = primary
	r.canary = canary
	r.loadedAt = r.now()
	return r.primary, r.canary
}
