package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/cache/badger"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// clock is a settable test clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type factory func(t *testing.T, now func() time.Time) driven.CacheStore

func stores() map[string]factory {
	return map[string]factory{
		"memory": func(_ *testing.T, now func() time.Time) driven.CacheStore {
			return memory.New(now)
		},
		"badger": func(t *testing.T, now func() time.Time) driven.CacheStore {
			s, err := badger.Open(badger.Options{InMemory: true, Now: now})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func counting(payload string, calls *atomic.Int32) driven.FetchFunc {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(payload), nil
	}
}

func failing(calls *atomic.Int32) driven.FetchFunc {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}
}

func TestCacheStores(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Run("hit within ttl makes no call", func(t *testing.T) {
				clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
				s := newStore(t, clk.Now)
				ctx := context.Background()
				var calls atomic.Int32

				first, err := s.GetOrFetch(ctx, "src", time.Hour, counting("payload-1", &calls))
				require.NoError(t, err)
				assert.False(t, first.Hit)

				clk.Advance(59 * time.Minute)
				second, err := s.GetOrFetch(ctx, "src", time.Hour, counting("payload-2", &calls))
				require.NoError(t, err)

				assert.True(t, second.Hit)
				assert.Equal(t, int32(1), calls.Load())
				assert.Equal(t, first.Entry.Payload, second.Entry.Payload)
				assert.Equal(t, "payload-1", string(second.Entry.Payload))
			})

			t.Run("expiry refetches exactly once", func(t *testing.T) {
				clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
				s := newStore(t, clk.Now)
				ctx := context.Background()
				var calls atomic.Int32

				_, err := s.GetOrFetch(ctx, "src", time.Hour, counting("old", &calls))
				require.NoError(t, err)

				clk.Advance(time.Hour)
				res, err := s.GetOrFetch(ctx, "src", time.Hour, counting("new", &calls))
				require.NoError(t, err)
				assert.False(t, res.Hit)
				assert.Equal(t, "new", string(res.Entry.Payload))
				assert.Equal(t, int32(2), calls.Load())

				again, err := s.GetOrFetch(ctx, "src", time.Hour, counting("newer", &calls))
				require.NoError(t, err)
				assert.True(t, again.Hit)
				assert.Equal(t, "new", string(again.Entry.Payload))
				assert.Equal(t, int32(2), calls.Load())

				stored, err := s.Get(ctx, "src")
				require.NoError(t, err)
				assert.Equal(t, clk.Now().Unix(), stored.FetchedAt.Unix())
				assert.Equal(t, time.Hour, stored.TTL)
			})

			t.Run("failure keeps stale entry", func(t *testing.T) {
				clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
				s := newStore(t, clk.Now)
				ctx := context.Background()
				var calls atomic.Int32

				_, err := s.GetOrFetch(ctx, "src", time.Minute, counting("good", &calls))
				require.NoError(t, err)

				clk.Advance(2 * time.Minute)
				_, err = s.GetOrFetch(ctx, "src", time.Minute, failing(&calls))
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrNetwork)

				var fe *domain.FetchError
				require.ErrorAs(t, err, &fe)
				require.NotNil(t, fe.Stale)
				assert.Equal(t, "good", string(fe.Stale.Payload))
				assert.Equal(t, "src", fe.SourceKey)

				kept, err := s.Get(ctx, "src")
				require.NoError(t, err)
				assert.Equal(t, "good", string(kept.Payload))
			})

			t.Run("failure without entry has no stale", func(t *testing.T) {
				s := newStore(t, nil)
				var calls atomic.Int32
				_, err := s.GetOrFetch(context.Background(), "missing", time.Hour, failing(&calls))
				var fe *domain.FetchError
				require.ErrorAs(t, err, &fe)
				assert.Nil(t, fe.Stale)
			})

			t.Run("zero ttl always fetches", func(t *testing.T) {
				s := newStore(t, nil)
				var calls atomic.Int32
				for i := 0; i < 3; i++ {
					_, err := s.GetOrFetch(context.Background(), "src", 0, counting("x", &calls))
					require.NoError(t, err)
				}
				assert.Equal(t, int32(3), calls.Load())
			})

			t.Run("keys are isolated", func(t *testing.T) {
				s := newStore(t, nil)
				ctx := context.Background()
				var calls atomic.Int32

				a, err := s.GetOrFetch(ctx, "a", time.Hour, counting("A", &calls))
				require.NoError(t, err)
				b, err := s.GetOrFetch(ctx, "b", time.Hour, counting("B", &calls))
				require.NoError(t, err)
				assert.Equal(t, "A", string(a.Entry.Payload))
				assert.Equal(t, "B", string(b.Entry.Payload))
				assert.Equal(t, int32(2), calls.Load())
			})

			t.Run("concurrent callers share one fetch", func(t *testing.T) {
				s := newStore(t, nil)
				var calls atomic.Int32
				release := make(chan struct{})
				fetch := func(context.Context) ([]byte, error) {
					calls.Add(1)
					<-release
					return []byte("shared"), nil
				}

				var wg sync.WaitGroup
				results := make([]string, 8)
				for i := range results {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						res, err := s.GetOrFetch(context.Background(), "hot", time.Hour, fetch)
						if err == nil {
							results[i] = string(res.Entry.Payload)
						}
					}(i)
				}
				time.Sleep(50 * time.Millisecond)
				close(release)
				wg.Wait()

				assert.Equal(t, int32(1), calls.Load())
				for _, r := range results {
					assert.Equal(t, "shared", r)
				}
			})

			t.Run("put get delete", func(t *testing.T) {
				s := newStore(t, nil)
				ctx := context.Background()

				_, err := s.Get(ctx, "k")
				assert.ErrorIs(t, err, domain.ErrNotFound)

				require.NoError(t, s.Put(ctx, domain.CacheEntry{SourceKey: "k", Payload: []byte("v"), FetchedAt: time.Now(), TTL: time.Hour}))
				got, err := s.Get(ctx, "k")
				require.NoError(t, err)
				assert.Equal(t, "v", string(got.Payload))

				require.NoError(t, s.Delete(ctx, "k"))
				_, err = s.Get(ctx, "k")
				assert.ErrorIs(t, err, domain.ErrNotFound)
			})
		})
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := badger.Open(badger.Options{Dir: dir})
	require.NoError(t, err)
	var calls atomic.Int32
	_, err = s.GetOrFetch(ctx, "src", time.Hour, counting("durable", &calls))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := badger.Open(badger.Options{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	res, err := reopened.GetOrFetch(ctx, "src", time.Hour, counting("fresh", &calls))
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, "durable", string(res.Entry.Payload))
	assert.Equal(t, int32(1), calls.Load())

	stored, err := reopened.Get(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, "durable", string(stored.Payload))

	_, err = reopened.Get(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBadgerStore_RequiresDir(t *testing.T) {
	_, err := badger.Open(badger.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
