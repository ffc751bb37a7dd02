package driven

import (
	"context"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// UpsertOutcome reports what an upsert did.
type UpsertOutcome int

const (
	// UpsertInserted means a new row was created.
	UpsertInserted UpsertOutcome = iota

	// UpsertUpdated means an existing row's metadata was refreshed.
	UpsertUpdated
)

// BatchOutcome tallies an UpsertBatch call.
type BatchOutcome struct {
	Inserted int
	Updated  int
}

// RecordStore persists normalised records, one row per natural key.
// Store failures wrap domain.ErrPersistence.
type RecordStore interface {
	// Upsert inserts the record or refreshes the mutable metadata of the
	// existing row with the same natural key. Safe under concurrent calls.
	Upsert(ctx context.Context, record domain.Record) (UpsertOutcome, error)

	// UpsertBatch upserts records atomically: all or none are committed.
	UpsertBatch(ctx context.Context, records []domain.Record) (BatchOutcome, error)

	// Count returns the number of stored records of a kind.
	Count(ctx context.Context, kind domain.RecordKind) (int, error)

	// List returns stored records of a kind ordered by natural key.
	List(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error)
}
