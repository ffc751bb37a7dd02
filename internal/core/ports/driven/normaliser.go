package driven

import (
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// Normaliser turns raw records of one kind into normalised records.
type Normaliser interface {
	// Kind returns the record kind this normaliser handles.
	Kind() domain.RecordKind

	// Normalise converts a raw record. Returns a *domain.ParseError when the
	// raw record lacks the fields its natural key needs.
	Normalise(raw domain.RawRecord) (domain.Record, error)
}

// NormaliserRegistry selects the normaliser for a raw record.
type NormaliserRegistry interface {
	// Register adds a normaliser, replacing any for the same kind.
	Register(n Normaliser)

	// Normalise dispatches to the normaliser for raw.Kind.
	// Returns ErrUnsupportedType if none is registered.
	Normalise(raw domain.RawRecord) (domain.Record, error)
}
