package services

import "github.com/custodia-labs/intel-ingest/internal/core/domain"

// Dedupe keeps the first record for each natural key, preserving order, and
// returns the number of duplicates dropped.
func Dedupe(records []domain.Record) ([]domain.Record, int) {
	seen := make(map[string]struct{}, len(records))
	unique := make([]domain.Record, 0, len(records))
	for _, record := range records {
		key := string(record.Kind()) + "\x00" + record.NaturalKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, record)
	}
	return unique, len(records) - len(unique)
}
