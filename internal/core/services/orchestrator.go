package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/intel-ingest/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Pipeline = (*Orchestrator)(nil)

// DefaultWorkers runs sources one at a time.
const DefaultWorkers = 1

// Orchestrator drives every configured source through fetch, parse,
// normalise, dedupe and upsert, then appends one run record.
type Orchestrator struct {
	sources  []domain.SourceConfig
	factory  driven.AdapterFactory
	cache    driven.CacheStore
	registry driven.NormaliserRegistry
	records  driven.RecordStore
	runs     driven.RunStore

	workers  int
	now      func() time.Time
	newID    func() string
	progress driving.ProgressFunc

	mu     sync.RWMutex
	status map[string]domain.SourceResult

	// progressMu serialises progress callbacks from pool workers.
	progressMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the number of sources processed concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithProgress registers a callback invoked once per finished source.
func WithProgress(fn driving.ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// NewOrchestrator creates an orchestrator over the given sources.
// Disabled sources are ignored.
func NewOrchestrator(
	sources []domain.SourceConfig,
	factory driven.AdapterFactory,
	cache driven.CacheStore,
	registry driven.NormaliserRegistry,
	records driven.RecordStore,
	runs driven.RunStore,
	opts ...Option,
) *Orchestrator {
	enabled := make([]domain.SourceConfig, 0, len(sources))
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	o := &Orchestrator{
		sources:  enabled,
		factory:  factory,
		cache:    cache,
		registry: registry,
		records:  records,
		runs:     runs,
		workers:  DefaultWorkers,
		now:      time.Now,
		newID:    uuid.NewString,
		status:   make(map[string]domain.SourceResult),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the live result of a source in the current or last run.
func (o *Orchestrator) Status(sourceKey string) (domain.SourceResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res, ok := o.status[sourceKey]
	return res, ok
}

// Run executes one end-to-end run.
func (o *Orchestrator) Run(ctx context.Context) (*domain.PipelineRun, error) {
	run := &domain.PipelineRun{
		ID:        o.newID(),
		StartedAt: o.now().UTC(),
		Sources:   make(map[string]domain.SourceResult, len(o.sources)),
	}
	logger.Section("Run " + run.ID)
	logger.Info("pipeline: starting run %s with %d sources", run.ID, len(o.sources))

	o.mu.Lock()
	o.status = make(map[string]domain.SourceResult, len(o.sources))
	for _, src := range o.sources {
		o.status[src.Key] = domain.SourceResult{SourceKey: src.Key, Kind: src.Record, State: domain.StateIdle}
	}
	o.mu.Unlock()

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)

	for _, src := range o.sources {
		src := src
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, err := o.safeRunSource(runCtx, src)
			if err != nil {
				fatalMu.Lock()
				if fatalErr == nil {
					fatalErr = err
					abort(err)
				}
				fatalMu.Unlock()
			}
			o.finish(res)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			o.finish(o.failed(src, err))
		}
	}
	wg.Wait()

	o.mu.RLock()
	for key, res := range o.status {
		run.Sources[key] = res
	}
	o.mu.RUnlock()

	run.Tally()
	run.FinishedAt = o.now().UTC()
	switch {
	case fatalErr != nil:
		run.Status = domain.RunAborted
	case ctx.Err() != nil:
		run.Status = domain.RunCancelled
	default:
		run.Status = domain.RunCompleted
	}

	// The run log is written even when the caller cancelled.
	recordErr := o.runs.RecordRun(context.WithoutCancel(ctx), *run)

	if fatalErr != nil {
		if recordErr != nil {
			logger.Warn("pipeline: recording aborted run %s: %v", run.ID, recordErr)
		}
		logger.Error("pipeline: run %s aborted: %v", run.ID, fatalErr)
		return run, fmt.Errorf("run %s aborted: %w", run.ID, fatalErr)
	}
	if recordErr != nil {
		return run, fmt.Errorf("recording run %s: %w", run.ID, recordErr)
	}

	logger.Info("pipeline: run %s %s, %d records stored", run.ID, run.Status, run.TotalRecords)
	return run, nil
}

// safeRunSource converts a panicking adapter into a failed source.
func (o *Orchestrator) safeRunSource(ctx context.Context, src domain.SourceConfig) (res domain.SourceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline: source %s panicked: %v\n%s", src.Key, r, debug.Stack())
			res = o.failed(src, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()
	return o.runSource(ctx, src)
}

// runSource processes one source. The returned error is non-nil only for a
// record store failure, which aborts the run.
//
//nolint:gocyclo // Per-source state machine with its fallback chain
func (o *Orchestrator) runSource(ctx context.Context, src domain.SourceConfig) (domain.SourceResult, error) {
	res := domain.SourceResult{SourceKey: src.Key, Kind: src.Record, State: domain.StateIdle}
	log := logger.With("source", src.Key)

	if ctx.Err() != nil {
		return cancelled(ctx, res), nil
	}

	adapter, err := o.factory.Create(src)
	if err != nil {
		return skipped(res, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)), nil
	}
	if err := adapter.Validate(ctx); err != nil {
		log.Info("source skipped", "err", err)
		return skipped(res, err), nil
	}

	// Fetch through the cache, falling back to the stale entry, then to the
	// curated set, then to nothing.
	res = o.advance(res, domain.StateFetching)
	var (
		payload []byte
		raws    []domain.RawRecord
		haveRaw bool
	)
	cached, err := o.cache.GetOrFetch(ctx, src.Key, adapter.TTL(), adapter.Fetch)
	switch {
	case err == nil:
		payload = cached.Entry.Payload
		res.CacheHit = cached.Hit
		if cached.Hit {
			res = o.advance(res, domain.StateCacheHit)
		} else {
			res = o.advance(res, domain.StateFetched)
		}
	case ctx.Err() != nil:
		return cancelled(ctx, res), nil
	default:
		res = o.advance(res, domain.StateFetchFailed)
		recordError(&res, err)
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Stale != nil {
			log.Warn("fetch failed, using stale cache entry", "err", err, "fetched_at", fetchErr.Stale.FetchedAt)
			payload = fetchErr.Stale.Payload
			res.UsedStale = true
		} else if curated, ok := curatedRecords(adapter); ok {
			log.Warn("fetch failed, using curated set", "err", err, "records", len(curated))
			raws, haveRaw = curated, true
			res.UsedCurated = true
		} else {
			log.Warn("fetch failed with no fallback", "err", err)
			return res, nil
		}
	}

	if !haveRaw {
		res = o.advance(res, domain.StateParsing)
		parsed, err := adapter.Parse(ctx, payload)
		var skippedErr *domain.SkippedError
		switch {
		case err == nil:
			raws = parsed
			res = o.advance(res, domain.StateParsed)
		case errors.As(err, &skippedErr):
			log.Debug("parse skipped fragments", "count", skippedErr.Count(), "err", err)
			raws = parsed
			res.Dropped += skippedErr.Count()
			res = o.advance(res, domain.StateParsed)
		case ctx.Err() != nil:
			return cancelled(ctx, res), nil
		default:
			res = o.advance(res, domain.StateParseFailed)
			recordError(&res, err)
			curated, ok := curatedRecords(adapter)
			if !ok {
				log.Warn("parse failed with no fallback", "err", err)
				return res, nil
			}
			log.Warn("parse failed, using curated set", "err", err, "records", len(curated))
			raws = curated
			res.UsedCurated = true
		}

		if policy, ok := adapter.(driven.FallbackPolicy); ok && !res.UsedCurated && policy.NeedsFallback(raws) {
			if curated, ok := curatedRecords(adapter); ok {
				log.Info("parsed records below threshold, using curated set",
					"parsed", len(raws), "threshold", src.Threshold(), "records", len(curated))
				raws = curated
				res.Dropped = 0
				res.UsedCurated = true
			}
		}
	}
	res.Parsed = len(raws)

	res = o.advance(res, domain.StateClassifying)
	records := make([]domain.Record, 0, len(raws))
	for _, raw := range raws {
		record, err := o.registry.Normalise(raw)
		if err != nil {
			log.Debug("dropping raw record", "origin", raw.Origin, "err", err)
			res.Dropped++
			continue
		}
		records = append(records, record)
	}

	res = o.advance(res, domain.StateDeduping)
	unique, duplicates := Dedupe(records)
	res.Duplicates = duplicates

	if ctx.Err() != nil {
		return cancelled(ctx, res), nil
	}
	outcome, err := o.records.UpsertBatch(ctx, unique)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx, res), nil
		}
		recordError(&res, err)
		return res, fmt.Errorf("source %s: %w", src.Key, err)
	}
	res.Inserted = outcome.Inserted
	res.Updated = outcome.Updated
	res = o.advance(res, domain.StateStored)

	log.Debug("source stored", "inserted", res.Inserted, "updated", res.Updated,
		"dropped", res.Dropped, "duplicates", res.Duplicates)
	return res, nil
}

// advance moves res to state and publishes it as the live status.
func (o *Orchestrator) advance(res domain.SourceResult, state domain.SourceState) domain.SourceResult {
	res.State = state
	o.mu.Lock()
	o.status[res.SourceKey] = res
	o.mu.Unlock()
	return res
}

// finish publishes a terminal result and reports progress.
func (o *Orchestrator) finish(res domain.SourceResult) {
	o.mu.Lock()
	o.status[res.SourceKey] = res
	o.mu.Unlock()

	if o.progress != nil {
		o.progressMu.Lock()
		o.progress(res)
		o.progressMu.Unlock()
	}
}

func (o *Orchestrator) failed(src domain.SourceConfig, err error) domain.SourceResult {
	res := domain.SourceResult{SourceKey: src.Key, Kind: src.Record, State: domain.StateFetchFailed}
	o.mu.RLock()
	if live, ok := o.status[src.Key]; ok {
		res = live
	}
	o.mu.RUnlock()
	recordError(&res, err)
	return res
}

func skipped(res domain.SourceResult, err error) domain.SourceResult {
	res.State = domain.StateSkipped
	recordError(&res, err)
	res.ErrorClass = domain.ErrorClassConfiguration
	return res
}

func cancelled(ctx context.Context, res domain.SourceResult) domain.SourceResult {
	res.State = domain.StateCancelled
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	if errors.Is(cause, domain.ErrPersistence) {
		// Sources cut short by an abort were never attempted.
		cause = fmt.Errorf("run aborted: %w", context.Canceled)
	}
	res.Error = cause.Error()
	res.ErrorClass = domain.ErrorClassCancelled
	return res
}

// recordError keeps the first error a source hit.
func recordError(res *domain.SourceResult, err error) {
	if err == nil || res.Error != "" {
		return
	}
	res.Error = err.Error()
	res.ErrorClass = domain.Classify(err)
}

// curatedRecords returns the adapter's curated set if it has a non-empty one.
func curatedRecords(adapter driven.SourceAdapter) ([]domain.RawRecord, bool) {
	provider, ok := adapter.(driven.CuratedProvider)
	if !ok {
		return nil, false
	}
	records, err := provider.Curated()
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("pipeline: loading curated set for %s: %v", adapter.Key(), err)
		}
		return nil, false
	}
	return records, len(records) > 0
}
