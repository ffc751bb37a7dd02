// Package cache holds the get-or-fetch policy shared by the cache store
// adapters. Backends supply raw reads and writes; Resolve decides freshness,
// collapses concurrent fetches of one key and keeps stale entries on failure.
package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Backend is the raw entry storage behind a cache store.
type Backend interface {
	// Get returns the entry for key or domain.ErrNotFound.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)

	// Put replaces the entry atomically.
	Put(ctx context.Context, entry domain.CacheEntry) error
}

// Resolver applies the get-or-fetch policy over a Backend.
type Resolver struct {
	backend Backend
	now     func() time.Time
	flight  singleflight.Group
}

// NewResolver creates a Resolver. A nil clock uses time.Now.
func NewResolver(backend Backend, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{backend: backend, now: now}
}

// GetOrFetch returns the live entry for key, or fetches and stores a new one.
// Concurrent calls for the same key share one fetch.
func (r *Resolver) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch driven.FetchFunc) (*domain.CacheResult, error) {
	if entry, err := r.live(ctx, key, ttl); err != nil || entry != nil {
		if err != nil {
			return nil, err
		}
		return &domain.CacheResult{Entry: *entry, Hit: true}, nil
	}

	v, err, _ := r.flight.Do(key, func() (any, error) {
		stale, err := r.backend.Get(ctx, key)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			stale = nil
		case err != nil:
			return nil, err
		case stale.Fresh(r.now(), ttl):
			// Another caller refreshed the entry while this one waited.
			return domain.CacheResult{Entry: *stale, Hit: true}, nil
		}

		payload, err := fetch(ctx)
		if err != nil {
			return nil, &domain.FetchError{SourceKey: key, Err: err, Stale: stale}
		}

		entry := domain.CacheEntry{SourceKey: key, Payload: payload, FetchedAt: r.now(), TTL: ttl}
		if err := r.backend.Put(ctx, entry); err != nil {
			return nil, err
		}
		return domain.CacheResult{Entry: entry}, nil
	})
	if err != nil {
		return nil, err
	}

	res := v.(domain.CacheResult)
	res.Entry.Payload = append([]byte(nil), res.Entry.Payload...)
	return &res, nil
}

func (r *Resolver) live(ctx context.Context, key string, ttl time.Duration) (*domain.CacheEntry, error) {
	entry, err := r.backend.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !entry.Fresh(r.now(), ttl) {
		return nil, nil
	}
	return entry, nil
}
