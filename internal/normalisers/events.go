package normalisers

import (
	"github.com/custodia-labs/intel-ingest/internal/classifier"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Raw field names shared by company event records.
const (
	FieldCompany     = "company"
	FieldDate        = "date"
	FieldCount       = "count"
	FieldPercentage  = "percentage"
	FieldRoundType   = "round_type"
	FieldAmount      = "amount"
	FieldOutcomeFlag = "outcome_flag"
	FieldPeriod      = "period"
	FieldOpenRoles   = "open_roles"
	FieldHiringIndex = "hiring_index"
)

var (
	_ driven.Normaliser = (*Layoff)(nil)
	_ driven.Normaliser = (*Funding)(nil)
	_ driven.Normaliser = (*Hiring)(nil)
)

// Layoff normalises layoff events. Company and date are required.
type Layoff struct{}

// NewLayoff creates a layoff normaliser.
func NewLayoff() *Layoff { return &Layoff{} }

// Kind returns domain.KindLayoff.
func (n *Layoff) Kind() domain.RecordKind { return domain.KindLayoff }

// Normalise converts a raw layoff row.
func (n *Layoff) Normalise(raw domain.RawRecord) (domain.Record, error) {
	if err := requireFields(raw, FieldCompany, FieldDate); err != nil {
		return nil, err
	}
	m, err := meta(raw)
	if err != nil {
		return nil, err
	}
	company := raw.String(FieldCompany)
	return &domain.LayoffRecord{
		RecordMeta: m,
		Company:    company,
		Count:      intPtr(raw, FieldCount),
		Percentage: floatPtr(raw, FieldPercentage),
		Date:       raw.String(FieldDate),
		Industry:   classifier.NormalizeIndustry(raw.String(FieldIndustry), company),
	}, nil
}

// Funding normalises funding rounds. Only the company is required; the round
// type and date complete the natural key when present.
type Funding struct{}

// NewFunding creates a funding normaliser.
func NewFunding() *Funding { return &Funding{} }

// Kind returns domain.KindFunding.
func (n *Funding) Kind() domain.RecordKind { return domain.KindFunding }

// Normalise converts a raw funding row.
func (n *Funding) Normalise(raw domain.RawRecord) (domain.Record, error) {
	if err := requireFields(raw, FieldCompany); err != nil {
		return nil, err
	}
	m, err := meta(raw)
	if err != nil {
		return nil, err
	}
	company := raw.String(FieldCompany)
	return &domain.FundingRecord{
		RecordMeta:  m,
		Company:     company,
		RoundType:   raw.String(FieldRoundType),
		Amount:      floatPtr(raw, FieldAmount),
		Date:        raw.String(FieldDate),
		OutcomeFlag: raw.String(FieldOutcomeFlag),
		Industry:    classifier.NormalizeIndustry(raw.String(FieldIndustry), company),
	}, nil
}

// Hiring normalises hiring index observations. Company and period are required.
type Hiring struct{}

// NewHiring creates a hiring normaliser.
func NewHiring() *Hiring { return &Hiring{} }

// Kind returns domain.KindHiring.
func (n *Hiring) Kind() domain.RecordKind { return domain.KindHiring }

// Normalise converts a raw hiring row.
func (n *Hiring) Normalise(raw domain.RawRecord) (domain.Record, error) {
	if err := requireFields(raw, FieldCompany, FieldPeriod); err != nil {
		return nil, err
	}
	m, err := meta(raw)
	if err != nil {
		return nil, err
	}
	company := raw.String(FieldCompany)
	return &domain.HiringRecord{
		RecordMeta:  m,
		Company:     company,
		Period:      raw.String(FieldPeriod),
		OpenRoles:   intPtr(raw, FieldOpenRoles),
		HiringIndex: floatPtr(raw, FieldHiringIndex),
		Industry:    classifier.NormalizeIndustry(raw.String(FieldIndustry), company),
	}, nil
}
