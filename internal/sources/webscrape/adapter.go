// Package webscrape implements a source adapter for HTML listing pages.
//
// A page is read as a list of repeated container elements. Each field of a
// record is taken from the first candidate selector that matches inside the
// container. Scraping is best effort: when fewer records than the source's
// threshold come back, the curated set replaces them.
package webscrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

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
	_ driven.FallbackPolicy  = (*Adapter)(nil)
)

// Selector roles.
const (
	RoleContainer   = "container"
	RoleName        = "name"
	RoleDescription = "description"
	RoleDate        = "date"
	RoleLink        = "link"
)

// DefaultSelectors are the candidates used for roles a source does not configure.
var DefaultSelectors = map[string][]string{
	RoleContainer:   {".startup-card", ".cemetery-item", "article", ".card", ".post"},
	RoleName:        {"h3", "h2", ".title", ".name", "a"},
	RoleDescription: {".description", ".summary", "p"},
	RoleDate:        {"time", ".date", ".year"},
	RoleLink:        {"a[href]"},
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Adapter scrapes one HTML listing page.
type Adapter struct {
	curated.Fallback
	cfg       domain.SourceConfig
	fetcher   httpfetch.Getter
	selectors map[string][]string
}

// New creates a web scrape adapter for failure or product launch records.
func New(cfg domain.SourceConfig, fetcher httpfetch.Getter, lib *curated.Library) (*Adapter, error) {
	switch cfg.Record {
	case domain.KindFailure, domain.KindProductLaunch:
	default:
		return nil, fmt.Errorf("webscrape source %s: record %q: %w", cfg.Key, cfg.Record, domain.ErrUnsupportedType)
	}

	selectors := make(map[string][]string, len(DefaultSelectors))
	for role, candidates := range DefaultSelectors {
		selectors[role] = candidates
	}
	for role, candidates := range cfg.Selectors {
		if len(candidates) > 0 {
			selectors[role] = candidates
		}
	}

	return &Adapter{
		Fallback:  curated.NewFallback(lib, cfg),
		cfg:       cfg,
		fetcher:   fetcher,
		selectors: selectors,
	}, nil
}

// Key returns the source key.
func (a *Adapter) Key() string { return a.cfg.Key }

// Kind returns the configured record kind.
func (a *Adapter) Kind() domain.RecordKind { return a.cfg.Record }

// TTL returns the cache freshness window.
func (a *Adapter) TTL() time.Duration { return a.cfg.TTL }

// Validate checks that a page URL is configured.
func (a *Adapter) Validate(_ context.Context) error {
	if a.cfg.URL == "" {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "url"}
	}
	return nil
}

// Fetch downloads the listing page.
func (a *Adapter) Fetch(ctx context.Context) ([]byte, error) {
	return a.fetcher.Get(ctx, a.cfg.URL, http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en"},
	})
}

// NeedsFallback reports whether the scrape came back below the threshold.
func (a *Adapter) NeedsFallback(parsed []domain.RawRecord) bool {
	return len(parsed) < a.cfg.Threshold()
}

// Parse extracts one record per container. Containers without a name are skipped.
func (a *Adapter) Parse(_ context.Context, payload []byte) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.ParseError{SourceKey: a.cfg.Key, Origin: a.cfg.URL, Err: err}
	}

	containers := a.containers(doc)
	if containers == nil {
		logger.Debug("webscrape %s: no container selector matched", a.cfg.Key)
		return nil, nil
	}

	base, _ := url.Parse(a.cfg.URL)
	seen := make(map[string]struct{})
	var records []domain.RawRecord

	containers.Each(func(i int, s *goquery.Selection) {
		name := a.text(s, RoleName)
		if name == "" {
			return
		}
		link := resolve(base, a.attr(s, RoleLink, "href"))
		if link == "" {
			link = a.cfg.URL + "#" + slug(name)
		}
		if _, dup := seen[strings.ToLower(link)]; dup {
			return
		}
		seen[strings.ToLower(link)] = struct{}{}

		records = append(records, domain.RawRecord{
			SourceKey: a.cfg.Key,
			Kind:      a.cfg.Record,
			Origin:    fmt.Sprintf("%s#item=%d", a.cfg.URL, i),
			Fields:    a.fields(name, a.text(s, RoleDescription), a.dateText(s), link),
		})
	})
	return records, nil
}

func (a *Adapter) fields(name, description, date, link string) map[string]any {
	if a.cfg.Record == domain.KindProductLaunch {
		return map[string]any{
			normalisers.FieldName:       name,
			normalisers.FieldTagline:    description,
			normalisers.FieldURL:        link,
			normalisers.FieldLaunchDate: date,
		}
	}
	fields := map[string]any{
		normalisers.FieldName:        name,
		normalisers.FieldDescription: description,
		normalisers.FieldSourceURL:   link,
	}
	if y := yearPattern.FindString(date); y != "" {
		year, _ := strconv.Atoi(y)
		fields[normalisers.FieldYear] = year
	}
	return fields
}

// containers returns the matches of the first container selector with any.
func (a *Adapter) containers(doc *goquery.Document) *goquery.Selection {
	for _, sel := range a.selectors[RoleContainer] {
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// text returns the trimmed text of the first candidate matching within s.
func (a *Adapter) text(s *goquery.Selection, role string) string {
	for _, sel := range a.selectors[role] {
		found := s.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if t := collapse(found.Text()); t != "" {
			return t
		}
	}
	return ""
}

func (a *Adapter) attr(s *goquery.Selection, role, name string) string {
	for _, sel := range a.selectors[role] {
		if v, ok := s.Find(sel).First().Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// dateText prefers a machine-readable datetime attribute.
func (a *Adapter) dateText(s *goquery.Selection) string {
	if v := a.attr(s, RoleDate, "datetime"); v != "" {
		return v
	}
	return a.text(s, RoleDate)
}

func resolve(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
