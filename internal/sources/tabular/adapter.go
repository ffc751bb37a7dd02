// Package tabular implements a source adapter for CSV datasets with a
// header row. Columns are mapped by header name through per-kind aliases.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/logger"
	"github.com/custodia-labs/intel-ingest/internal/normalisers"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

// Ensure Adapter implements the interfaces.
var (
	_ driven.SourceAdapter   = (*Adapter)(nil)
	_ driven.CuratedProvider = (*Adapter)(nil)
)

// numeric describes how a column is coerced.
type numeric int

const (
	text numeric = iota
	integer
	decimal
)

// column maps a canonical raw field to the header names that may carry it.
type column struct {
	field   string
	aliases []string
	kind    numeric
}

// schemas lists the columns per record kind. The first column identifies the row.
var schemas = map[domain.RecordKind][]column{
	domain.KindLayoff: {
		{normalisers.FieldCompany, []string{"company", "company_name", "name"}, text},
		{normalisers.FieldDate, []string{"date", "layoff_date", "date_added"}, text},
		{normalisers.FieldCount, []string{"count", "total_laid_off", "laid_off", "employees_laid_off", "num_laid_off"}, integer},
		{normalisers.FieldPercentage, []string{"percentage", "percentage_laid_off", "percent", "pct"}, decimal},
		{normalisers.FieldIndustry, []string{"industry", "sector"}, text},
	},
	domain.KindFunding: {
		{normalisers.FieldCompany, []string{"company", "company_name", "name", "organization"}, text},
		{normalisers.FieldRoundType, []string{"round_type", "funding_round_type", "funding_round", "round", "stage"}, text},
		{normalisers.FieldDate, []string{"date", "funded_at", "announced_on", "announced_date"}, text},
		{normalisers.FieldAmount, []string{"amount", "raised_amount_usd", "amount_usd", "money_raised", "raised"}, decimal},
		{normalisers.FieldOutcomeFlag, []string{"outcome_flag", "outcome", "status"}, text},
		{normalisers.FieldIndustry, []string{"industry", "sector", "category"}, text},
	},
	domain.KindHiring: {
		{normalisers.FieldCompany, []string{"company", "company_name", "name", "employer"}, text},
		{normalisers.FieldPeriod, []string{"period", "month", "quarter", "date"}, text},
		{normalisers.FieldOpenRoles, []string{"open_roles", "openings", "job_postings", "postings"}, integer},
		{normalisers.FieldHiringIndex, []string{"hiring_index", "index", "hiring_rate"}, decimal},
		{normalisers.FieldIndustry, []string{"industry", "sector"}, text},
	},
}

// Kinds returns the record kinds the adapter can produce.
func Kinds() []domain.RecordKind {
	return []domain.RecordKind{domain.KindLayoff, domain.KindFunding, domain.KindHiring}
}

// Adapter downloads a CSV dataset and maps its rows to raw records.
type Adapter struct {
	curated.Fallback
	cfg     domain.SourceConfig
	fetcher httpfetch.Getter
	columns []column
}

// New creates a tabular adapter. Returns ErrUnsupportedType when the
// configured record kind has no column schema.
func New(cfg domain.SourceConfig, fetcher httpfetch.Getter, lib *curated.Library) (*Adapter, error) {
	columns, ok := schemas[cfg.Record]
	if !ok {
		return nil, fmt.Errorf("tabular source %s: record %q: %w", cfg.Key, cfg.Record, domain.ErrUnsupportedType)
	}
	return &Adapter{
		Fallback: curated.NewFallback(lib, cfg),
		cfg:      cfg,
		fetcher:  fetcher,
		columns:  columns,
	}, nil
}

// Key returns the source key.
func (a *Adapter) Key() string { return a.cfg.Key }

// Kind returns the configured record kind.
func (a *Adapter) Kind() domain.RecordKind { return a.cfg.Record }

// TTL returns the cache freshness window.
func (a *Adapter) TTL() time.Duration { return a.cfg.TTL }

// Validate checks that a dataset URL is configured.
func (a *Adapter) Validate(_ context.Context) error {
	if a.cfg.URL == "" {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "url"}
	}
	return nil
}

// Fetch downloads the dataset.
func (a *Adapter) Fetch(ctx context.Context) ([]byte, error) {
	return a.fetcher.Get(ctx, a.cfg.URL, http.Header{"Accept": {"text/csv, text/plain;q=0.9, */*;q=0.5"}})
}

// Parse maps CSV rows to raw records. Rows whose column count differs from
// the header, or whose identifying column is empty, are skipped and reported
// through a *domain.SkippedError alongside the kept records. Numeric cells
// that fail to parse become nil.
func (a *Adapter) Parse(_ context.Context, payload []byte) ([]domain.RawRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, a.parseError(fmt.Errorf("read header: %w", err))
	}

	index, err := a.mapHeader(header)
	if err != nil {
		return nil, a.parseError(err)
	}

	var (
		records []domain.RawRecord
		skipped []error
	)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped = append(skipped, a.rowError(line, err))
			continue
		}
		if err != nil {
			return nil, a.parseError(fmt.Errorf("read row %d: %w", line, err))
		}
		if len(row) != len(header) {
			skipped = append(skipped, a.rowError(line, fmt.Errorf("%d columns, header has %d", len(row), len(header))))
			continue
		}

		fields := make(map[string]any, len(a.columns))
		for i, col := range a.columns {
			pos, ok := index[i]
			if !ok {
				continue
			}
			fields[col.field] = coerce(row[pos], col.kind)
		}
		if id, _ := fields[a.columns[0].field].(string); id == "" {
			skipped = append(skipped, a.rowError(line, fmt.Errorf("empty %s", a.columns[0].field)))
			continue
		}

		records = append(records, domain.RawRecord{
			SourceKey: a.cfg.Key,
			Kind:      a.cfg.Record,
			Origin:    a.rowOrigin(line),
			Fields:    fields,
		})
	}

	if len(skipped) > 0 {
		logger.Debug("tabular %s: skipped %d malformed rows", a.cfg.Key, len(skipped))
		return records, &domain.SkippedError{SourceKey: a.cfg.Key, Causes: skipped}
	}
	return records, nil
}

func (a *Adapter) rowOrigin(line int) string {
	return fmt.Sprintf("%s#row=%d", a.cfg.URL, line)
}

func (a *Adapter) rowError(line int, err error) error {
	return &domain.ParseError{SourceKey: a.cfg.Key, Origin: a.rowOrigin(line), Err: err}
}

// mapHeader returns, per schema column, the header position carrying it.
func (a *Adapter) mapHeader(header []string) (map[int]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	index := make(map[int]int, len(a.columns))
	for i, col := range a.columns {
		for _, alias := range col.aliases {
			if pos, ok := positions[alias]; ok {
				index[i] = pos
				break
			}
		}
	}
	if _, ok := index[0]; !ok {
		return nil, fmt.Errorf("header has no %s column", a.columns[0].field)
	}
	return index, nil
}

func (a *Adapter) parseError(err error) error {
	return &domain.ParseError{SourceKey: a.cfg.Key, Origin: a.cfg.URL, Err: err}
}

// coerce converts a cell. Numeric cells accept thousands separators,
// currency and percent signs; anything else yields nil.
func coerce(cell string, kind numeric) any {
	cell = strings.TrimSpace(cell)
	if kind == text {
		return cell
	}

	clean := strings.NewReplacer(",", "", "$", "", "%", "", " ", "").Replace(cell)
	if clean == "" {
		return nil
	}
	switch kind {
	case integer:
		if n, err := strconv.Atoi(clean); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(clean, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
			return int(f)
		}
		return nil
	default:
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
}
