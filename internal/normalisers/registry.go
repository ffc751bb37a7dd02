package normalisers

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps record kinds to their normalisers.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.RecordKind]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make(map[domain.RecordKind]driven.Normaliser),
	}
}

// Default creates a registry with a normaliser for every record kind.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewFailure())
	r.Register(NewLayoff())
	r.Register(NewFunding())
	r.Register(NewProductLaunch())
	r.Register(NewHiring())
	return r
}

// Register adds a normaliser, replacing any for the same kind.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers[n.Kind()] = n
}

// Normalise dispatches raw to the normaliser for its kind.
func (r *Registry) Normalise(raw domain.RawRecord) (domain.Record, error) {
	r.mu.RLock()
	n, ok := r.normalisers[raw.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("normalise %q: %w", raw.Kind, domain.ErrUnsupportedType)
	}
	return n.Normalise(raw)
}

// Kinds returns the registered record kinds.
func (r *Registry) Kinds() []domain.RecordKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.RecordKind, 0, len(r.normalisers))
	for _, k := range domain.AllKinds {
		if _, ok := r.normalisers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// meta builds the record metadata shared by every kind.
func meta(raw domain.RawRecord) (domain.RecordMeta, error) {
	provenance, err := raw.Provenance()
	if err != nil {
		return domain.RecordMeta{}, &domain.ParseError{SourceKey: raw.SourceKey, Origin: raw.Origin, Err: err}
	}
	return domain.RecordMeta{Source: raw.SourceKey, Provenance: provenance}, nil
}

// requireFields returns a ParseError naming the first empty field.
func requireFields(raw domain.RawRecord, fields ...string) error {
	for _, f := range fields {
		if raw.String(f) == "" {
			return &domain.ParseError{
				SourceKey: raw.SourceKey,
				Origin:    raw.Origin,
				Err:       fmt.Errorf("missing %s", f),
			}
		}
	}
	return nil
}

func intPtr(raw domain.RawRecord, key string) *int {
	if v, ok := raw.Int(key); ok {
		return &v
	}
	return nil
}

func floatPtr(raw domain.RawRecord, key string) *float64 {
	if v, ok := raw.Float(key); ok {
		return &v
	}
	return nil
}
