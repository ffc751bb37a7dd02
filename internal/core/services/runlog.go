package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driving"
)

// Ensure RunLog implements the interface.
var _ driving.RunLog = (*RunLog)(nil)

// RunLog reads the pipeline run history.
type RunLog struct {
	runs driven.RunStore
}

// NewRunLog creates a run log service.
func NewRunLog(runs driven.RunStore) *RunLog {
	return &RunLog{runs: runs}
}

// Recent returns the most recent runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	runs, err := l.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
