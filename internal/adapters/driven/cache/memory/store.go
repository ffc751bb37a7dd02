// Package memory provides an in-memory CacheStore, used by tests and by
// runs that should not touch the data directory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/cache"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CacheStore = (*Store)(nil)

// Store is an in-memory cache store.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]domain.CacheEntry
	resolver *cache.Resolver
}

// New creates an empty store. A nil clock uses time.Now.
func New(now func() time.Time) *Store {
	s := &Store{entries: make(map[string]domain.CacheEntry)}
	s.resolver = cache.NewResolver(s, now)
	return s
}

// GetOrFetch returns the live entry or fetches a new one.
func (s *Store) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch driven.FetchFunc) (*domain.CacheResult, error) {
	return s.resolver.GetOrFetch(ctx, key, ttl, fetch)
}

// Get returns a copy of the entry for key.
func (s *Store) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	return &entry, nil
}

// Put stores a copy of entry.
func (s *Store) Put(_ context.Context, entry domain.CacheEntry) error {
	entry.Payload = append([]byte(nil), entry.Payload...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.SourceKey] = entry
	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
