// Package searchapi implements a source adapter for keyword search APIs
// shaped like the Hacker News Algolia endpoint.
package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/logger"
	"github.com/custodia-labs/intel-ingest/internal/normalisers"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

// ItemURLPrefix synthesises a canonical URL for hits without one.
const ItemURLPrefix = "https://news.ycombinator.com/item?id="

// Ensure Adapter implements the interfaces.
var (
	_ driven.SourceAdapter   = (*Adapter)(nil)
	_ driven.CuratedProvider = (*Adapter)(nil)
)

// Bundle is the cached payload: every query's raw response.
type Bundle struct {
	Responses []QueryResponse `json:"responses"`
}

// QueryResponse is one query and the body the API returned for it.
type QueryResponse struct {
	Query string `json:"query"`
	Body  []byte `json:"body"`
}

// Hit is one search result.
type Hit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	ObjectID  string `json:"objectID"`
	CreatedAt string `json:"created_at"`
	Points    *int   `json:"points"`
}

// CanonicalURL returns the hit's URL, or the item page for its identifier.
func (h Hit) CanonicalURL() string {
	if u := strings.TrimSpace(h.URL); u != "" {
		return u
	}
	if id := strings.TrimSpace(h.ObjectID); id != "" {
		return ItemURLPrefix + id
	}
	return ""
}

type searchResponse struct {
	Hits []Hit `json:"hits"`
}

// Adapter runs a fixed list of queries against a search endpoint.
type Adapter struct {
	curated.Fallback
	cfg     domain.SourceConfig
	fetcher httpfetch.Getter
}

// New creates a search API adapter for failure or product launch records.
func New(cfg domain.SourceConfig, fetcher httpfetch.Getter, lib *curated.Library) (*Adapter, error) {
	switch cfg.Record {
	case domain.KindFailure, domain.KindProductLaunch:
	default:
		return nil, fmt.Errorf("searchapi source %s: record %q: %w", cfg.Key, cfg.Record, domain.ErrUnsupportedType)
	}
	return &Adapter{Fallback: curated.NewFallback(lib, cfg), cfg: cfg, fetcher: fetcher}, nil
}

// Key returns the source key.
func (a *Adapter) Key() string { return a.cfg.Key }

// Kind returns the configured record kind.
func (a *Adapter) Kind() domain.RecordKind { return a.cfg.Record }

// TTL returns the cache freshness window.
func (a *Adapter) TTL() time.Duration { return a.cfg.TTL }

// Validate checks that an endpoint and queries are configured.
func (a *Adapter) Validate(_ context.Context) error {
	if a.cfg.URL == "" {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "url"}
	}
	if len(a.cfg.Queries) == 0 {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "queries"}
	}
	return nil
}

// Fetch runs every query and bundles the responses. Individual query
// failures are tolerated; the fetch fails only when every query fails.
func (a *Adapter) Fetch(ctx context.Context) ([]byte, error) {
	var bundle Bundle
	var errs []error

	for _, q := range a.cfg.Queries {
		body, err := a.fetcher.Get(ctx, a.queryURL(q), http.Header{"Accept": {"application/json"}})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("searchapi %s: query %q failed: %v", a.cfg.Key, q, err)
			errs = append(errs, err)
			continue
		}
		bundle.Responses = append(bundle.Responses, QueryResponse{Query: q, Body: body})
	}

	if len(bundle.Responses) == 0 {
		return nil, errors.Join(errs...)
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("encode search bundle: %w", err)
	}
	return data, nil
}

func (a *Adapter) queryURL(q string) string {
	v := url.Values{}
	v.Set("query", q)
	v.Set("tags", "story")
	sep := "?"
	if strings.Contains(a.cfg.URL, "?") {
		sep = "&"
	}
	return a.cfg.URL + sep + v.Encode()
}

// Parse flattens the bundle into raw records, one per distinct canonical URL.
// Responses that are not valid JSON are skipped, as are hits without a
// title or any identifier.
func (a *Adapter) Parse(_ context.Context, payload []byte) ([]domain.RawRecord, error) {
	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, &domain.ParseError{SourceKey: a.cfg.Key, Origin: a.cfg.URL, Err: err}
	}

	seen := make(map[string]struct{})
	var records []domain.RawRecord
	valid := 0

	for _, resp := range bundle.Responses {
		var sr searchResponse
		if err := json.Unmarshal(resp.Body, &sr); err != nil {
			logger.Debug("searchapi %s: skipping response for %q: %v", a.cfg.Key, resp.Query, err)
			continue
		}
		valid++

		for _, hit := range sr.Hits {
			canonical := hit.CanonicalURL()
			title := strings.TrimSpace(hit.Title)
			if canonical == "" || title == "" {
				continue
			}
			k := strings.ToLower(canonical)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			records = append(records, domain.RawRecord{
				SourceKey: a.cfg.Key,
				Kind:      a.cfg.Record,
				Origin:    a.queryURL(resp.Query) + "#" + hit.ObjectID,
				Fields:    a.fields(hit, title, canonical, resp.Query),
			})
		}
	}

	if valid == 0 && len(bundle.Responses) > 0 {
		return nil, &domain.ParseError{SourceKey: a.cfg.Key, Origin: a.cfg.URL, Err: errors.New("no response was valid JSON")}
	}
	return records, nil
}

func (a *Adapter) fields(hit Hit, title, canonical, query string) map[string]any {
	created, _ := time.Parse(time.RFC3339, hit.CreatedAt)

	if a.cfg.Record == domain.KindProductLaunch {
		fields := map[string]any{
			normalisers.FieldName:    strings.TrimSpace(strings.TrimPrefix(title, "Show HN:")),
			normalisers.FieldTagline: title,
			normalisers.FieldURL:     canonical,
		}
		if !created.IsZero() {
			fields[normalisers.FieldLaunchDate] = created.UTC().Format(time.DateOnly)
		}
		if hit.Points != nil {
			fields[normalisers.FieldPoints] = *hit.Points
		}
		return fields
	}

	fields := map[string]any{
		normalisers.FieldName:        title,
		normalisers.FieldDescription: title,
		normalisers.FieldSourceURL:   canonical,
		normalisers.FieldTags:        []string{query},
	}
	if !created.IsZero() {
		fields[normalisers.FieldYear] = created.UTC().Year()
	}
	return fields
}
