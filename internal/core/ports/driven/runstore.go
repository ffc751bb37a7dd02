package driven

import (
	"context"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// RunStore is the append-only pipeline run log.
// There is deliberately no update or delete operation.
type RunStore interface {
	// RecordRun appends a completed run.
	RecordRun(ctx context.Context, run domain.PipelineRun) error

	// ListRuns returns the most recent runs, newest first.
	// A non-positive limit returns all runs.
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}
