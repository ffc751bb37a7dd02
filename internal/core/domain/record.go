package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordKind identifies one normalised record variant and its table.
type RecordKind string

const (
	KindFailure       RecordKind = "failure"
	KindLayoff        RecordKind = "layoff"
	KindFunding       RecordKind = "funding"
	KindProductLaunch RecordKind = "product_launch"
	KindHiring        RecordKind = "hiring"
)

// AllKinds lists every record kind in table order.
var AllKinds = []RecordKind{KindFailure, KindLayoff, KindFunding, KindProductLaunch, KindHiring}

// ParseRecordKind validates a record kind string.
func ParseRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", ErrUnsupportedType
}

// Record is a normalised record. The set of implementations is closed:
// FailureRecord, LayoffRecord, FundingRecord, ProductLaunchRecord and HiringRecord.
type Record interface {
	Kind() RecordKind
	NaturalKey() string
	Meta() RecordMeta
	sealed()
}

// RecordMeta is carried by every Record.
type RecordMeta struct {
	// Source is the key of the source that produced the record.
	Source string

	// Provenance is the original RawRecord as JSON.
	Provenance json.RawMessage

	// IngestedAt is set by the store on first insert.
	IngestedAt time.Time

	// RefreshedAt is set by the store on every upsert.
	RefreshedAt time.Time

	// Revision counts upserts of the natural key, starting at 1.
	Revision int
}

// FailureRecord describes a startup failure narrative.
type FailureRecord struct {
	RecordMeta
	Name               string
	Industry           string
	FailureReason      string
	Year               *int
	DecisionType       string
	Description        string
	LogicUsed          string
	MitigationStrategy string
	Tags               []string
	SourceURL          string
}

func (r *FailureRecord) Kind() RecordKind   { return KindFailure }
func (r *FailureRecord) NaturalKey() string { return KeyOf(r.SourceURL) }
func (r *FailureRecord) Meta() RecordMeta   { return r.RecordMeta }
func (r *FailureRecord) sealed()            {}

// LayoffRecord describes one layoff event.
type LayoffRecord struct {
	RecordMeta
	Company    string
	Count      *int
	Percentage *float64
	Date       string
	Industry   string
}

func (r *LayoffRecord) Kind() RecordKind   { return KindLayoff }
func (r *LayoffRecord) NaturalKey() string { return KeyOf(r.Company, r.Date) }
func (r *LayoffRecord) Meta() RecordMeta   { return r.RecordMeta }
func (r *LayoffRecord) sealed()            {}

// FundingRecord describes one funding round.
type FundingRecord struct {
	RecordMeta
	Company     string
	RoundType   string
	Amount      *float64
	Date        string
	OutcomeFlag string
	Industry    string
}

func (r *FundingRecord) Kind() RecordKind   { return KindFunding }
func (r *FundingRecord) NaturalKey() string { return KeyOf(r.Company, r.RoundType, r.Date) }
func (r *FundingRecord) Meta() RecordMeta   { return r.RecordMeta }
func (r *FundingRecord) sealed()            {}

// ProductLaunchRecord describes a public product launch.
type ProductLaunchRecord struct {
	RecordMeta
	Name       string
	Tagline    string
	URL        string
	LaunchDate string
	Industry   string
	Points     *int
}

func (r *ProductLaunchRecord) Kind() RecordKind   { return KindProductLaunch }
func (r *ProductLaunchRecord) NaturalKey() string { return KeyOf(r.URL) }
func (r *ProductLaunchRecord) Meta() RecordMeta   { return r.RecordMeta }
func (r *ProductLaunchRecord) sealed()            {}

// HiringRecord describes a hiring index observation for a company and period.
type HiringRecord struct {
	RecordMeta
	Company     string
	Period      string
	OpenRoles   *int
	HiringIndex *float64
	Industry    string
}

func (r *HiringRecord) Kind() RecordKind   { return KindHiring }
func (r *HiringRecord) NaturalKey() string { return KeyOf(r.Company, r.Period) }
func (r *HiringRecord) Meta() RecordMeta   { return r.RecordMeta }
func (r *HiringRecord) sealed()            {}

// KeyOf builds a natural key from its parts. Parts are trimmed and
// lower-cased, then joined with "|". A key whose parts are all empty is "".
func KeyOf(parts ...string) string {
	normalised := make([]string, len(parts))
	empty := true
	for i, p := range parts {
		normalised[i] = strings.ToLower(strings.TrimSpace(p))
		if normalised[i] != "" {
			empty = false
		}
	}
	if empty {
		return ""
	}
	return strings.Join(normalised, "|")
}
