package normalisers

import (
	"github.com/custodia-labs/intel-ingest/internal/classifier"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Raw field names for product launches.
const (
	FieldTagline    = "tagline"
	FieldURL        = "url"
	FieldLaunchDate = "launch_date"
	FieldPoints     = "points"
)

var _ driven.Normaliser = (*ProductLaunch)(nil)

// ProductLaunch normalises product launch posts.
type ProductLaunch struct{}

// NewProductLaunch creates a product launch normaliser.
func NewProductLaunch() *ProductLaunch {
	return &ProductLaunch{}
}

// Kind returns domain.KindProductLaunch.
func (n *ProductLaunch) Kind() domain.RecordKind {
	return domain.KindProductLaunch
}

// Normalise requires a name and a URL.
func (n *ProductLaunch) Normalise(raw domain.RawRecord) (domain.Record, error) {
	if err := requireFields(raw, FieldName, FieldURL); err != nil {
		return nil, err
	}
	m, err := meta(raw)
	if err != nil {
		return nil, err
	}
	name := raw.String(FieldName)
	tagline := raw.String(FieldTagline)
	return &domain.ProductLaunchRecord{
		RecordMeta: m,
		Name:       name,
		Tagline:    tagline,
		URL:        raw.String(FieldURL),
		LaunchDate: raw.String(FieldLaunchDate),
		Industry:   classifier.NormalizeIndustry(raw.String(FieldIndustry), tagline, name),
		Points:     intPtr(raw, FieldPoints),
	}, nil
}
