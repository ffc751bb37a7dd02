package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[domain.RecordKind]map[string]domain.Record
	now     func() time.Time
}

// NewRecordStore creates a new in-memory record store. A nil clock uses time.Now.
func NewRecordStore(now func() time.Time) *RecordStore {
	if now == nil {
		now = time.Now
	}
	return &RecordStore{
		records: make(map[domain.RecordKind]map[string]domain.Record),
		now:     now,
	}
}

// Upsert inserts the record or refreshes the stored copy with the same natural key.
func (s *RecordStore) Upsert(_ context.Context, record domain.Record) (driven.UpsertOutcome, error) {
	if err := check(record); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(record, s.now().UTC()), nil
}

// UpsertBatch validates every record before storing any of them.
func (s *RecordStore) UpsertBatch(_ context.Context, records []domain.Record) (driven.BatchOutcome, error) {
	for _, record := range records {
		if err := check(record); err != nil {
			return driven.BatchOutcome{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out driven.BatchOutcome
	now := s.now().UTC()
	for _, record := range records {
		if s.upsertLocked(record, now) == driven.UpsertInserted {
			out.Inserted++
		} else {
			out.Updated++
		}
	}
	return out, nil
}

func (s *RecordStore) upsertLocked(record domain.Record, now time.Time) driven.UpsertOutcome {
	byKey, ok := s.records[record.Kind()]
	if !ok {
		byKey = make(map[string]domain.Record)
		s.records[record.Kind()] = byKey
	}

	key := record.NaturalKey()
	meta := record.Meta()
	meta.RefreshedAt = now
	outcome := driven.UpsertInserted
	if existing, found := byKey[key]; found {
		prev := existing.Meta()
		meta.IngestedAt = prev.IngestedAt
		meta.Revision = prev.Revision + 1
		outcome = driven.UpsertUpdated
	} else {
		meta.IngestedAt = now
		meta.Revision = 1
	}
	byKey[key] = withMeta(record, meta)
	return outcome
}

// Count returns the number of stored records of a kind.
func (s *RecordStore) Count(_ context.Context, kind domain.RecordKind) (int, error) {
	if _, err := domain.ParseRecordKind(string(kind)); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[kind]), nil
}

// List returns copies of stored records ordered by natural key.
func (s *RecordStore) List(_ context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	if _, err := domain.ParseRecordKind(string(kind)); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records[kind]))
	for key := range s.records[kind] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]domain.Record, 0, len(keys))
	for _, key := range keys {
		record := s.records[kind][key]
		result = append(result, withMeta(record, record.Meta()))
	}
	return result, nil
}

func check(record domain.Record) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", domain.ErrInvalidInput)
	}
	if _, err := domain.ParseRecordKind(string(record.Kind())); err != nil {
		return err
	}
	if record.NaturalKey() == "" {
		return fmt.Errorf("%w: %s record has an empty natural key", domain.ErrInvalidInput, record.Kind())
	}
	return nil
}

// withMeta returns a copy of record carrying meta.
func withMeta(record domain.Record, meta domain.RecordMeta) domain.Record {
	meta.Provenance = slices.Clone(meta.Provenance)
	switch r := record.(type) {
	case *domain.FailureRecord:
		c := *r
		c.Tags = slices.Clone(r.Tags)
		c.RecordMeta = meta
		return &c
	case *domain.LayoffRecord:
		c := *r
		c.RecordMeta = meta
		return &c
	case *domain.FundingRecord:
		c := *r
		c.RecordMeta = meta
		return &c
	case *domain.ProductLaunchRecord:
		c := *r
		c.RecordMeta = meta
		return &c
	case *domain.HiringRecord:
		c := *r
		c.RecordMeta = meta
		return &c
	default:
		return record
	}
}
