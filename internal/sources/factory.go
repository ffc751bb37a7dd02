package sources

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/sources/aiextract"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
	"github.com/custodia-labs/intel-ingest/internal/sources/searchapi"
	"github.com/custodia-labs/intel-ingest/internal/sources/tabular"
	"github.com/custodia-labs/intel-ingest/internal/sources/webscrape"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// Deps are the collaborators shared by every adapter the factory builds.
type Deps struct {
	// Fetcher performs all HTTP requests. Required.
	Fetcher httpfetch.Getter

	// LLM serves extraction requests. Nil leaves AI extraction sources
	// unconfigured; they are skipped at validation.
	LLM driven.LLMService

	// Memo caches extraction results.
	Memo driven.CacheStore

	// Curated resolves curated fallback sets.
	Curated *curated.Library
}

// Factory creates source adapters from configuration.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.AdapterKind]driven.AdapterBuilder
}

// NewFactory creates a factory with the built-in adapter kinds registered.
func NewFactory(deps Deps) *Factory {
	f := &Factory{builders: make(map[domain.AdapterKind]driven.AdapterBuilder)}

	f.Register(domain.AdapterWebScrape, func(src domain.SourceConfig) (driven.SourceAdapter, error) {
		return webscrape.New(src, deps.Fetcher, deps.Curated)
	})
	f.Register(domain.AdapterTabular, func(src domain.SourceConfig) (driven.SourceAdapter, error) {
		return tabular.New(src, deps.Fetcher, deps.Curated)
	})
	f.Register(domain.AdapterSearchAPI, func(src domain.SourceConfig) (driven.SourceAdapter, error) {
		return searchapi.New(src, deps.Fetcher, deps.Curated)
	})
	f.Register(domain.AdapterAIExtract, func(src domain.SourceConfig) (driven.SourceAdapter, error) {
		return aiextract.New(src, deps.Fetcher, deps.LLM, deps.Memo, deps.Curated)
	})

	return f
}

// Register adds or replaces the builder for an adapter kind.
func (f *Factory) Register(kind domain.AdapterKind, builder driven.AdapterBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[kind] = builder
}

// Create builds the adapter for a source.
func (f *Factory) Create(source domain.SourceConfig) (driven.SourceAdapter, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Adapter]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: adapter %q for source %s", domain.ErrUnsupportedType, source.Adapter, source.Key)
	}
	return builder(source)
}

// SupportedKinds returns the registered adapter kinds in sorted order.
func (f *Factory) SupportedKinds() []domain.AdapterKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	kinds := make([]domain.AdapterKind, 0, len(f.builders))
	for kind := range f.builders {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
