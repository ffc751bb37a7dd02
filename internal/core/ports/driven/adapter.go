package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// SourceAdapter fetches and parses one external source.
// Each adapter variant (web scrape, tabular, search API, AI extraction)
// implements this interface.
type SourceAdapter interface {
	// Key returns the configured source key.
	Key() string

	// Kind returns the record kind the adapter produces.
	Kind() domain.RecordKind

	// TTL returns the cache freshness window for the fetched payload.
	TTL() time.Duration

	// Validate checks required settings and credentials.
	// Returns a *domain.ConfigurationError when the source cannot run.
	Validate(ctx context.Context) error

	// Fetch retrieves the raw payload. Network failures wrap domain.ErrNetwork.
	Fetch(ctx context.Context) ([]byte, error)

	// Parse turns a payload into raw records. Malformed fragments are skipped;
	// an error is returned only when the payload as a whole is unusable, or as
	// a *domain.SkippedError alongside the records when dropped fragments
	// should be counted.
	Parse(ctx context.Context, payload []byte) ([]domain.RawRecord, error)
}

// CuratedProvider is implemented by adapters that carry a curated fallback set.
type CuratedProvider interface {
	// Curated returns the curated records for the source.
	Curated() ([]domain.RawRecord, error)
}

// FallbackPolicy is implemented by adapters that decide when a successful
// parse is still too thin to trust.
type FallbackPolicy interface {
	// NeedsFallback reports whether parsed records should be replaced by the curated set.
	NeedsFallback(parsed []domain.RawRecord) bool
}

// AdapterBuilder creates a SourceAdapter from a SourceConfig.
type AdapterBuilder func(source domain.SourceConfig) (SourceAdapter, error)

// AdapterFactory creates adapters from source configuration.
// It maintains a registry of adapter kinds and their builders.
type AdapterFactory interface {
	// Create returns a SourceAdapter for the given source.
	// Returns ErrUnsupportedType if the adapter kind is unknown.
	Create(source domain.SourceConfig) (SourceAdapter, error)

	// Register adds a builder for the given adapter kind.
	Register(kind domain.AdapterKind, builder AdapterBuilder)

	// SupportedKinds returns all registered adapter kinds.
	SupportedKinds() []domain.AdapterKind
}
