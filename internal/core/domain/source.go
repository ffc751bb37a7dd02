package domain

import (
	"fmt"
	"time"
)

// AdapterKind identifies a source adapter variant.
type AdapterKind string

const (
	AdapterWebScrape AdapterKind = "webscrape"
	AdapterTabular   AdapterKind = "tabular"
	AdapterSearchAPI AdapterKind = "searchapi"
	AdapterAIExtract AdapterKind = "aiextract"
)

// DefaultMinRecords is the scraped-record floor below which a web scrape
// falls back to its curated set.
const DefaultMinRecords = 10

// DefaultMaxChars bounds the text sent in one extraction request.
const DefaultMaxChars = 15000

// SourceConfig represents one configured external source.
type SourceConfig struct {
	// Key is the unique identifier, also used as the cache key.
	Key string

	// Adapter selects the adapter variant.
	Adapter AdapterKind

	// Record is the kind of record the source produces.
	Record RecordKind

	// Name is the human-readable name.
	Name string

	// URL is the endpoint, page or dataset location.
	URL string

	// TTL is the cache freshness window.
	TTL time.Duration

	// Enabled toggles the source.
	Enabled bool

	// MinRecords is the web scrape fallback threshold.
	MinRecords int

	// Curated names the curated fallback asset, if any.
	Curated string

	// Queries are the search strings for search API sources.
	Queries []string

	// Documents are the text locations for AI extraction sources.
	Documents []string

	// MaxChars truncates extraction input.
	MaxChars int

	// Selectors configures web scrape selector candidates, keyed by field
	// ("container", "name", "description", "date", "link").
	Selectors map[string][]string
}

// Validate checks the fields every adapter needs.
func (s SourceConfig) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: source key is required", ErrInvalidInput)
	}
	switch s.Adapter {
	case AdapterWebScrape, AdapterTabular, AdapterSearchAPI:
		if s.URL == "" {
			return fmt.Errorf("%w: source %s: url is required", ErrInvalidInput, s.Key)
		}
	case AdapterAIExtract:
		if len(s.Documents) == 0 {
			return fmt.Errorf("%w: source %s: documents are required", ErrInvalidInput, s.Key)
		}
	default:
		return fmt.Errorf("%w: source %s: adapter %q", ErrUnsupportedType, s.Key, s.Adapter)
	}
	if _, err := ParseRecordKind(string(s.Record)); err != nil {
		return fmt.Errorf("%w: source %s: record %q", ErrUnsupportedType, s.Key, s.Record)
	}
	if s.Adapter == AdapterSearchAPI && len(s.Queries) == 0 {
		return fmt.Errorf("%w: source %s: queries are required", ErrInvalidInput, s.Key)
	}
	return nil
}

// Threshold returns MinRecords or the default.
func (s SourceConfig) Threshold() int {
	if s.MinRecords <= 0 {
		return DefaultMinRecords
	}
	return s.MinRecords
}

// TextLimit returns MaxChars or the default.
func (s SourceConfig) TextLimit() int {
	if s.MaxChars <= 0 {
		return DefaultMaxChars
	}
	return s.MaxChars
}
