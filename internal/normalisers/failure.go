package normalisers

import (
	"github.com/custodia-labs/intel-ingest/internal/classifier"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Raw field names for failure records.
const (
	FieldName               = "name"
	FieldIndustry           = "industry"
	FieldFailureReason      = "failure_reason"
	FieldYear               = "year"
	FieldDecisionType       = "decision_type"
	FieldDescription        = "description"
	FieldLogicUsed          = "logic_used"
	FieldMitigationStrategy = "mitigation_strategy"
	FieldTags               = "tags"
	FieldSourceURL          = "source_url"
)

var _ driven.Normaliser = (*Failure)(nil)

// Failure normalises startup failure narratives.
type Failure struct{}

// NewFailure creates a failure normaliser.
func NewFailure() *Failure {
	return &Failure{}
}

// Kind returns domain.KindFailure.
func (n *Failure) Kind() domain.RecordKind {
	return domain.KindFailure
}

// Normalise requires a name and a source URL. A missing failure reason falls
// back to the description so the decision type still has text to classify.
func (n *Failure) Normalise(raw domain.RawRecord) (domain.Record, error) {
	if err := requireFields(raw, FieldName, FieldSourceURL); err != nil {
		return nil, err
	}
	m, err := meta(raw)
	if err != nil {
		return nil, err
	}

	name := raw.String(FieldName)
	description := raw.String(FieldDescription)
	reason := raw.String(FieldFailureReason)
	if reason == "" {
		reason = description
	}

	var year *int
	if y, ok := raw.Int(FieldYear); ok && y > 0 {
		year = &y
	}

	return &domain.FailureRecord{
		RecordMeta:         m,
		Name:               name,
		Industry:           classifier.NormalizeIndustry(raw.String(FieldIndustry), description, name),
		FailureReason:      reason,
		Year:               year,
		DecisionType:       classifier.NormalizeDecisionType(raw.String(FieldDecisionType), reason, description),
		Description:        description,
		LogicUsed:          raw.String(FieldLogicUsed),
		MitigationStrategy: raw.String(FieldMitigationStrategy),
		Tags:               raw.Strings(FieldTags),
		SourceURL:          raw.String(FieldSourceURL),
	}, nil
}
