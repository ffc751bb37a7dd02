package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.PipelineRun
}

// NewRunStore creates a new in-memory run log.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// RecordRun appends a run. Run IDs must be unique.
func (s *RunStore) RecordRun(_ context.Context, run domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.runs {
		if existing.ID == run.ID {
			return fmt.Errorf("%w: run %s already recorded", domain.ErrPersistence, run.ID)
		}
	}
	run.Sources = maps.Clone(run.Sources)
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PipelineRun, len(s.runs))
	for i, run := range s.runs {
		run.Sources = maps.Clone(run.Sources)
		result[i] = run
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
