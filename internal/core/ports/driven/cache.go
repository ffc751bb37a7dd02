package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// FetchFunc produces a fresh payload for a cache key.
type FetchFunc func(ctx context.Context) ([]byte, error)

// CacheStore is a durable, TTL-governed payload cache shared across runs.
type CacheStore interface {
	// GetOrFetch returns the live entry for key without calling fetch.
	// Otherwise it calls fetch and atomically replaces the entry on success.
	// On fetch failure the stale entry is kept and a *domain.FetchError
	// carrying it is returned.
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (*domain.CacheResult, error)

	// Get returns the entry for key regardless of freshness.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)

	// Put stores an entry, replacing any previous one.
	Put(ctx context.Context, entry domain.CacheEntry) error

	// Delete removes an entry.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
