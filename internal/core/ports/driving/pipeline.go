package driving

import (
	"context"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// Pipeline runs the ingestion pipeline across all configured sources.
type Pipeline interface {
	// Run executes one end-to-end run and returns its persisted summary.
	// An error is returned only for run-level failures (record store failure).
	// When ctx is cancelled, committed sources are kept and the run is still recorded.
	Run(ctx context.Context) (*domain.PipelineRun, error)

	// Status returns the live state of a source in the current run.
	Status(sourceKey string) (domain.SourceResult, bool)
}

// ProgressFunc receives each source's result as soon as the source finishes.
type ProgressFunc func(result domain.SourceResult)

// RunLog reads the pipeline run history.
type RunLog interface {
	// Recent returns the most recent runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}
