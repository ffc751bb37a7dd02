package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// mockPipeline implements driving.Pipeline for testing.
type mockPipeline struct {
	results []domain.SourceResult
	err     error
	opts    Options
}

func (m *mockPipeline) Run(_ context.Context) (*domain.PipelineRun, error) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &domain.PipelineRun{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Status:     domain.RunCompleted,
		Sources:    map[string]domain.SourceResult{},
	}
	for _, res := range m.results {
		if m.opts.Progress != nil {
			m.opts.Progress(res)
		}
		run.Sources[res.SourceKey] = res
	}
	run.Tally()
	if m.err != nil {
		run.Status = domain.RunAborted
	}
	return run, m.err
}

func (m *mockPipeline) Status(string) (domain.SourceResult, bool) {
	return domain.SourceResult{}, false
}

// mockRunLog implements driving.RunLog for testing.
type mockRunLog struct {
	runs      []domain.PipelineRun
	lastLimit int
}

func (m *mockRunLog) Recent(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	m.lastLimit = limit
	return m.runs, nil
}

func setupCLITest(t *testing.T, pipeline *mockPipeline, runLog *mockRunLog) *bytes.Buffer {
	t.Helper()

	closed := false
	oldBuilder, oldTerminal := builder, isTerminal
	SetBuilder(func(_ context.Context, opts Options) (*Services, error) {
		if pipeline != nil {
			pipeline.opts = opts
		}
		return &Services{
			Pipeline:   pipeline,
			RunLog:     runLog,
			ConfigPath: "/tmp/config.toml",
			Sources: []domain.SourceConfig{
				{Key: "failory", Adapter: domain.AdapterWebScrape, Record: domain.KindFailure, Enabled: true, TTL: time.Hour},
				{Key: "layoffs", Adapter: domain.AdapterTabular, Record: domain.KindLayoff},
			},
			Close: func() error { closed = true; return nil },
		}, nil
	})
	isTerminal = func(io.Writer) bool { return false }

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() {
		builder, isTerminal = oldBuilder, oldTerminal
		rootCmd.SetArgs(nil)
		verbose, workers, runsLimit = false, 0, 10
		assert.True(t, closed, "services are closed after the command")
	})
	return buf
}

func TestRootCmd_RunsPipeline(t *testing.T) {
	pipeline := &mockPipeline{results: []domain.SourceResult{
		{SourceKey: "failory", State: domain.StateStored, Parsed: 12, Inserted: 12, UsedCurated: true},
		{SourceKey: "postmortem-extract", State: domain.StateSkipped, ErrorClass: domain.ErrorClassConfiguration,
			Error: "source postmortem-extract: missing LLM API key"},
	}}
	buf := setupCLITest(t, pipeline, nil)
	rootCmd.SetArgs([]string{"--workers", "2"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "failory")
	assert.Contains(t, out, "inserted=12")
	assert.Contains(t, out, "[curated]")
	assert.Contains(t, out, "error(configuration): source postmortem-extract: missing LLM API key")
	assert.Contains(t, out, "Run run-1 completed in 1.5s")
	assert.Contains(t, out, "Sources: 1 stored, 1 skipped, 1 with errors")
	assert.Contains(t, out, "Records stored: 12")
	assert.Equal(t, 2, pipeline.opts.Workers)
}

func TestRootCmd_PersistenceFailureExitsNonZero(t *testing.T) {
	pipeline := &mockPipeline{err: fmt.Errorf("run run-1 aborted: %w", domain.ErrPersistence)}
	buf := setupCLITest(t, pipeline, nil)
	rootCmd.SetArgs([]string{})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, buf.String(), "aborted")
}

func TestRunsCmd_ListsRuns(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	runLog := &mockRunLog{runs: []domain.PipelineRun{{
		ID: "run-9", StartedAt: start, FinishedAt: start.Add(time.Minute), Status: domain.RunCancelled, TotalRecords: 7,
		Sources: map[string]domain.SourceResult{"layoffs": {SourceKey: "layoffs", State: domain.StateCancelled}},
	}}}
	buf := setupCLITest(t, nil, runLog)
	rootCmd.SetArgs([]string{"runs", "--limit", "3", "--verbose"})

	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, 3, runLog.lastLimit)
	assert.Contains(t, buf.String(), "run-9")
	assert.Contains(t, buf.String(), "cancelled")
	assert.Contains(t, buf.String(), "7 records")
	assert.Contains(t, buf.String(), "layoffs")
}

func TestRunsCmd_Empty(t *testing.T) {
	buf := setupCLITest(t, nil, &mockRunLog{})
	rootCmd.SetArgs([]string{"runs"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "No runs recorded.")
}

func TestSourcesCmd_ListsSources(t *testing.T) {
	buf := setupCLITest(t, nil, nil)
	rootCmd.SetArgs([]string{"sources"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Config: /tmp/config.toml")
	assert.Contains(t, out, "failory")
	assert.Contains(t, out, "enabled")
	assert.Contains(t, out, "disabled")
}

func TestBuild_WithoutBuilder(t *testing.T) {
	old := builder
	builder = nil
	defer func() { builder = old }()

	_, err := build(rootCmd, nil)
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	line := formatResult(domain.SourceResult{
		SourceKey: "hn-launches", State: domain.StateStored, CacheHit: true,
		Parsed: 5, Updated: 4, Duplicates: 1,
	})
	assert.Contains(t, line, "hn-launches")
	assert.Contains(t, line, "updated=4")
	assert.Contains(t, line, "duplicates=1")
	assert.Contains(t, line, "[cache]")
	assert.NotContains(t, line, "error")
}
