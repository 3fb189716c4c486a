// Package resolve implements the cache-then-source fallback chain that
// account and profile lookups (and the mnemonic decryption path) all share.
// One resolver replaces the bespoke nested try/catch chains each call site
// used to carry.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"issuer-agent/pkg/sentinel"
)

const (
	// Redis counter keys, kept monotonic across restarts.
	counterHits   = "cache_hits"
	counterMisses = "cache_misses"

	// SourceCache labels a resolution served from the cache tier.
	SourceCache = "cache"
)

// CacheStore is the cache tier collaborator.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Increment(ctx context.Context, counterKey string) (int64, error)
}

// Source is one upstream tier in a fallback chain. Fetch returns found=false
// when the tier has no value for the key; an error is treated as absence and
// the chain continues.
type Source struct {
	Name  string
	Fetch func(ctx context.Context, key string) ([]byte, bool, error)
}

// Resolver resolves keys through the cache tier first, then an ordered chain
// of sources, writing hits back into the cache with a TTL.
type Resolver struct {
	cache   CacheStore
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
	group   singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics attaches prometheus hit/miss counters alongside the cache
// store's own counters.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New constructs a Resolver over the given cache tier. ttl bounds every
// write-back entry.
func New(cache CacheStore, ttl time.Duration, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{cache: cache, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resolution struct {
	value []byte
	label string
}

// Resolve returns the value for key and the label of the tier that served it.
// The cache tier is consulted first; a hit short-circuits the chain and
// increments cache_hits. Otherwise the sources run in order, the first
// present value is written back into the cache and returned, and
// cache_misses increments; exactly one counter moves per Resolve call no
// matter how many tiers were consulted. A failing source is treated as
// absent; if every tier comes back empty the last error (or
// sentinel.ErrNotFound) surfaces.
func (r *Resolver) Resolve(ctx context.Context, key string, sources ...Source) ([]byte, string, error) {
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolve(ctx, key, sources)
	})
	if err != nil {
		return nil, "", err
	}
	res := v.(resolution)
	return res.value, res.label, nil
}

func (r *Resolver) resolve(ctx context.Context, key string, sources []Source) (resolution, error) {
	cached, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		// Cache unreachable is a TransientSourceError: absorb and fall
		// through to the authoritative tiers.
		r.logger.Warn("cache tier unavailable", "key", key, "error", err)
	} else if ok {
		r.countHit(ctx)
		return resolution{value: cached, label: SourceCache}, nil
	}

	var lastErr error
	for _, src := range sources {
		value, found, err := src.Fetch(ctx, key)
		if err != nil {
			lastErr = fmt.Errorf("source %s: %w", src.Name, err)
			r.logger.Warn("resolver source failed, trying next tier",
				"key", key, "source", src.Name, "error", err)
			continue
		}
		if !found {
			continue
		}

		r.countMiss(ctx)
		if err := r.cache.SetWithTTL(ctx, key, value, r.ttl); err != nil {
			// Write-back is best effort; the authoritative value still wins.
			r.logger.Warn("cache write-back failed", "key", key, "error", err)
		}
		return resolution{value: value, label: src.Name}, nil
	}

	r.countMiss(ctx)
	if lastErr != nil {
		return resolution{}, lastErr
	}
	return resolution{}, fmt.Errorf("resolve %s: %w", key, sentinel.ErrNotFound)
}

func (r *Resolver) countHit(ctx context.Context) {
	if _, err := r.cache.Increment(ctx, counterHits); err != nil {
		r.logger.Warn("cache_hits increment failed", "error", err)
	}
	if r.metrics != nil {
		r.metrics.Hits.Inc()
	}
}

func (r *Resolver) countMiss(ctx context.Context) {
	if _, err := r.cache.Increment(ctx, counterMisses); err != nil {
		r.logger.Warn("cache_misses increment failed", "error", err)
	}
	if r.metrics != nil {
		r.metrics.Misses.Inc()
	}
}

// IsNotFound reports whether err means the chain was exhausted without a
// value rather than a tier failure.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
