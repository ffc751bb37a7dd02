// Package badger provides the durable CacheStore backed by BadgerDB.
// Each cache key maps to one Badger key whose value is the JSON-encoded
// entry, written in a single transaction.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/cache"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/logger"
)

const keyPrefix = "cache/"

// Ensure Store implements the interface.
var _ driven.CacheStore = (*Store)(nil)

// Options configures the store.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory, for tests.
	InMemory bool

	// Now is the clock used for freshness. Defaults to time.Now.
	Now func() time.Time
}

// Store is a BadgerDB-backed cache store.
type Store struct {
	db       *badger.DB
	resolver *cache.Resolver
}

// badgerLogger routes Badger's logs through the process logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens or creates the cache database.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("badger cache: %w: directory is required", domain.ErrInvalidInput)
		}
		if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("badger cache: create %s: %w", opts.Dir, err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger cache: open: %w", err)
	}

	s := &Store{db: db}
	s.resolver = cache.NewResolver(s, opts.Now)
	return s, nil
}

// GetOrFetch returns the live entry or fetches a new one.
func (s *Store) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch driven.FetchFunc) (*domain.CacheResult, error) {
	return s.resolver.GetOrFetch(ctx, key, ttl, fetch)
}

// Get returns the entry for key regardless of freshness.
func (s *Store) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger cache: get %s: %w", key, err)
	}
	return &entry, nil
}

// Put replaces the entry for entry.SourceKey in one transaction.
func (s *Store) Put(_ context.Context, entry domain.CacheEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("badger cache: encode %s: %w", entry.SourceKey, err)
	}
	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(keyPrefix+entry.SourceKey), value)
	})
	if err != nil {
		return fmt.Errorf("badger cache: put %s: %w", entry.SourceKey, err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *badger.Txn) error {
		return tx.Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("badger cache: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
