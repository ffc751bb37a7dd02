package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// row is the kind-specific part of an upsert.
type row struct {
	table string
	cols  []string
	vals  []any

	// mutable lists the columns refreshed on conflict. Columns that make up
	// the natural key are left alone.
	mutable []string
}

var tables = map[domain.RecordKind]string{
	domain.KindFailure:       "failures",
	domain.KindLayoff:        "layoffs",
	domain.KindFunding:       "funding_rounds",
	domain.KindProductLaunch: "product_launches",
	domain.KindHiring:        "hiring_patterns",
}

// selectColumns are read back by List in scanRecord order.
var selectColumns = map[domain.RecordKind][]string{
	domain.KindFailure: {
		"name", "industry", "failure_reason", "year", "decision_type", "description",
		"logic_used", "mitigation_strategy", "tags", "source_url",
	},
	domain.KindLayoff:        {"company", "count", "percentage", "date", "industry"},
	domain.KindFunding:       {"company", "round_type", "amount", "date", "outcome_flag", "industry"},
	domain.KindProductLaunch: {"name", "tagline", "url", "launch_date", "industry", "points"},
	domain.KindHiring:        {"company", "period", "open_roles", "hiring_index", "industry"},
}

func tableFor(kind domain.RecordKind) (string, error) {
	table, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("%w: record kind %q", domain.ErrUnsupportedType, kind)
	}
	return table, nil
}

func rowFor(record domain.Record) (row, error) {
	if record == nil {
		return row{}, fmt.Errorf("%w: nil record", domain.ErrInvalidInput)
	}
	if record.NaturalKey() == "" {
		return row{}, fmt.Errorf("%w: %s record has an empty natural key", domain.ErrInvalidInput, record.Kind())
	}

	switch r := record.(type) {
	case *domain.FailureRecord:
		tags, err := json.Marshal(nonNil(r.Tags))
		if err != nil {
			return row{}, fmt.Errorf("%w: encoding tags: %v", domain.ErrInvalidInput, err)
		}
		return row{
			table: "failures",
			cols:  selectColumns[domain.KindFailure],
			vals: []any{
				r.Name, r.Industry, r.FailureReason, r.Year, r.DecisionType, r.Description,
				r.LogicUsed, r.MitigationStrategy, string(tags), r.SourceURL,
			},
			mutable: []string{
				"name", "industry", "failure_reason", "year", "decision_type", "description",
				"logic_used", "mitigation_strategy", "tags",
			},
		}, nil
	case *domain.LayoffRecord:
		return row{
			table:   "layoffs",
			cols:    selectColumns[domain.KindLayoff],
			vals:    []any{r.Company, r.Count, r.Percentage, r.Date, r.Industry},
			mutable: []string{"count", "percentage", "industry"},
		}, nil
	case *domain.FundingRecord:
		return row{
			table:   "funding_rounds",
			cols:    selectColumns[domain.KindFunding],
			vals:    []any{r.Company, r.RoundType, r.Amount, r.Date, r.OutcomeFlag, r.Industry},
			mutable: []string{"amount", "outcome_flag", "industry"},
		}, nil
	case *domain.ProductLaunchRecord:
		return row{
			table:   "product_launches",
			cols:    selectColumns[domain.KindProductLaunch],
			vals:    []any{r.Name, r.Tagline, r.URL, r.LaunchDate, r.Industry, r.Points},
			mutable: []string{"name", "tagline", "launch_date", "industry", "points"},
		}, nil
	case *domain.HiringRecord:
		return row{
			table:   "hiring_patterns",
			cols:    selectColumns[domain.KindHiring],
			vals:    []any{r.Company, r.Period, r.OpenRoles, r.HiringIndex, r.Industry},
			mutable: []string{"open_roles", "hiring_index", "industry"},
		}, nil
	default:
		return row{}, fmt.Errorf("%w: record %T", domain.ErrUnsupportedType, record)
	}
}

// scanner is satisfied by *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(kind domain.RecordKind, rows scanner) (domain.Record, error) {
	var (
		meta                domain.RecordMeta
		raw                 string
		ingested, refreshed string
		nullInt             sql.NullInt64
		nullFloat           sql.NullFloat64
		tail                = []any{&meta.Source, &raw, &ingested, &refreshed, &meta.Revision}
		record              domain.Record
		setMeta             func(domain.RecordMeta)
		err                 error
	)

	switch kind {
	case domain.KindFailure:
		r := &domain.FailureRecord{}
		var tags string
		dest := []any{
			&r.Name, &r.Industry, &r.FailureReason, &nullInt, &r.DecisionType, &r.Description,
			&r.LogicUsed, &r.MitigationStrategy, &tags, &r.SourceURL,
		}
		if err = rows.Scan(append(dest, tail...)...); err == nil {
			r.Year = intOrNil(nullInt)
			if tags != "" {
				err = json.Unmarshal([]byte(tags), &r.Tags)
			}
		}
		record = r
		setMeta = func(m domain.RecordMeta) { r.RecordMeta = m }
	case domain.KindLayoff:
		r := &domain.LayoffRecord{}
		dest := []any{&r.Company, &nullInt, &nullFloat, &r.Date, &r.Industry}
		if err = rows.Scan(append(dest, tail...)...); err == nil {
			r.Count = intOrNil(nullInt)
			r.Percentage = floatOrNil(nullFloat)
		}
		record = r
		setMeta = func(m domain.RecordMeta) { r.RecordMeta = m }
	case domain.KindFunding:
		r := &domain.FundingRecord{}
		dest := []any{&r.Company, &r.RoundType, &nullFloat, &r.Date, &r.OutcomeFlag, &r.Industry}
		if err = rows.Scan(append(dest, tail...)...); err == nil {
			r.Amount = floatOrNil(nullFloat)
		}
		record = r
		setMeta = func(m domain.RecordMeta) { r.RecordMeta = m }
	case domain.KindProductLaunch:
		r := &domain.ProductLaunchRecord{}
		dest := []any{&r.Name, &r.Tagline, &r.URL, &r.LaunchDate, &r.Industry, &nullInt}
		if err = rows.Scan(append(dest, tail...)...); err == nil {
			r.Points = intOrNil(nullInt)
		}
		record = r
		setMeta = func(m domain.RecordMeta) { r.RecordMeta = m }
	case domain.KindHiring:
		r := &domain.HiringRecord{}
		dest := []any{&r.Company, &r.Period, &nullInt, &nullFloat, &r.Industry}
		if err = rows.Scan(append(dest, tail...)...); err == nil {
			r.OpenRoles = intOrNil(nullInt)
			r.HiringIndex = floatOrNil(nullFloat)
		}
		record = r
		setMeta = func(m domain.RecordMeta) { r.RecordMeta = m }
	default:
		return nil, fmt.Errorf("%w: record kind %q", domain.ErrUnsupportedType, kind)
	}
	if err != nil {
		return nil, persistence("scan "+string(kind), err)
	}

	meta.Provenance = json.RawMessage(raw)
	if meta.IngestedAt, err = parseTime(ingested); err != nil {
		return nil, persistence("scan "+string(kind), err)
	}
	if meta.RefreshedAt, err = parseTime(refreshed); err != nil {
		return nil, persistence("scan "+string(kind), err)
	}
	setMeta(meta)
	return record, nil
}

func intOrNil(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
