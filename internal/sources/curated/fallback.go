package curated

import (
	"fmt"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// Fallback binds a source to its curated set.
// Adapters embed it to implement driven.CuratedProvider.
type Fallback struct {
	lib       *Library
	set       string
	sourceKey string
	kind      domain.RecordKind
}

// NewFallback creates the fallback for a configured source.
// A source with no curated set yields domain.ErrNotFound from Curated.
func NewFallback(lib *Library, source domain.SourceConfig) Fallback {
	return Fallback{lib: lib, set: source.Curated, sourceKey: source.Key, kind: source.Record}
}

// HasCurated reports whether a curated set is configured.
func (f Fallback) HasCurated() bool {
	return f.lib != nil && f.set != ""
}

// Curated returns the curated records for the source.
func (f Fallback) Curated() ([]domain.RawRecord, error) {
	if !f.HasCurated() {
		return nil, fmt.Errorf("source %s has no curated set: %w", f.sourceKey, domain.ErrNotFound)
	}
	return f.lib.Records(f.set, f.sourceKey, f.kind)
}
