package domain

import (
	"sort"
	"time"
)

// SourceState is the per-source state machine position within a run.
type SourceState string

const (
	StateIdle        SourceState = "idle"
	StateFetching    SourceState = "fetching"
	StateCacheHit    SourceState = "cache_hit"
	StateFetched     SourceState = "fetched"
	StateFetchFailed SourceState = "fetch_failed"
	StateParsing     SourceState = "parsing"
	StateParsed      SourceState = "parsed"
	StateParseFailed SourceState = "parse_failed"
	StateClassifying SourceState = "classifying"
	StateDeduping    SourceState = "deduping"
	StateStored      SourceState = "stored"
	StateSkipped     SourceState = "skipped"
	StateCancelled   SourceState = "cancelled"
)

// RunStatus summarises a whole run.
type RunStatus string

const (
	// RunCompleted means every source reached a terminal state.
	RunCompleted RunStatus = "completed"

	// RunCancelled means the run was cancelled; committed sources are kept.
	RunCancelled RunStatus = "cancelled"

	// RunAborted means the record store failed and the run stopped.
	RunAborted RunStatus = "aborted"
)

// SourceResult is the tally for one source in one run.
type SourceResult struct {
	SourceKey   string      `json:"source_key"`
	Kind        RecordKind  `json:"kind"`
	State       SourceState `json:"state"`
	CacheHit    bool        `json:"cache_hit"`
	UsedStale   bool        `json:"used_stale,omitempty"`
	UsedCurated bool        `json:"used_curated,omitempty"`
	Parsed      int         `json:"parsed"`
	Dropped     int         `json:"dropped"`
	Duplicates  int         `json:"duplicates"`
	Inserted    int         `json:"inserted"`
	Updated     int         `json:"updated"`
	Error       string      `json:"error,omitempty"`
	ErrorClass  ErrorClass  `json:"error_class,omitempty"`
}

// Stored returns the number of records this source upserted.
func (r SourceResult) Stored() int {
	return r.Inserted + r.Updated
}

// Succeeded reports whether the source stored data without a recorded failure.
func (r SourceResult) Succeeded() bool {
	return r.State == StateStored && r.ErrorClass == ErrorClassNone
}

// PipelineRun is the immutable summary of one orchestrator invocation.
type PipelineRun struct {
	ID           string                  `json:"id"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Status       RunStatus               `json:"status"`
	Sources      map[string]SourceResult `json:"sources"`
	TotalRecords int                     `json:"total_records"`
}

// Tally recomputes TotalRecords from the source results.
func (r *PipelineRun) Tally() {
	total := 0
	for _, res := range r.Sources {
		total += res.Stored()
	}
	r.TotalRecords = total
}

// Failed returns the keys of sources that recorded an error.
func (r *PipelineRun) Failed() []string {
	var keys []string
	for key, res := range r.Sources {
		if res.ErrorClass != ErrorClassNone {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
