// Package aiextract implements a source adapter that turns unstructured
// documents into failure records through one LLM extraction call per
// document.
//
// Extraction responses, including ones that yield no record, are memoised in
// the cache store under a hash of the text sent, so the same text is never
// sent twice.
package aiextract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/logger"
	"github.com/custodia-labs/intel-ingest/internal/normalisers"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

// MemoTTL is how long an extraction response stays memoised.
const MemoTTL = 365 * 24 * time.Hour

// memoPrefix namespaces extraction entries in the cache store.
const memoPrefix = "extract:"

// Ensure Adapter implements the interfaces.
var (
	_ driven.SourceAdapter   = (*Adapter)(nil)
	_ driven.CuratedProvider = (*Adapter)(nil)
)

// Bundle is the cached payload: the visible text of every document.
type Bundle struct {
	Documents []Document `json:"documents"`
}

// Document is one fetched document's truncated text.
type Document struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Adapter extracts structured failure records from documents.
type Adapter struct {
	curated.Fallback
	cfg     domain.SourceConfig
	fetcher httpfetch.Getter
	llm     driven.LLMService
	memo    driven.CacheStore
}

// New creates an AI extraction adapter. llm may be nil when no credential is
// configured, in which case Validate reports a configuration error. memo may
// be nil to disable memoisation.
func New(cfg domain.SourceConfig, fetcher httpfetch.Getter, llm driven.LLMService, memo driven.CacheStore, lib *curated.Library) (*Adapter, error) {
	if cfg.Record != domain.KindFailure {
		return nil, fmt.Errorf("aiextract source %s: record %q: %w", cfg.Key, cfg.Record, domain.ErrUnsupportedType)
	}
	return &Adapter{
		Fallback: curated.NewFallback(lib, cfg),
		cfg:      cfg,
		fetcher:  fetcher,
		llm:      llm,
		memo:     memo,
	}, nil
}

// Key returns the source key.
func (a *Adapter) Key() string { return a.cfg.Key }

// Kind returns domain.KindFailure.
func (a *Adapter) Kind() domain.RecordKind { return a.cfg.Record }

// TTL returns the cache freshness window for the fetched documents.
func (a *Adapter) TTL() time.Duration { return a.cfg.TTL }

// Validate checks for documents and an LLM credential.
func (a *Adapter) Validate(_ context.Context) error {
	if len(a.cfg.Documents) == 0 {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "documents"}
	}
	if a.llm == nil {
		return &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "LLM API key"}
	}
	return nil
}

// Fetch downloads every document and keeps its truncated visible text.
// It fails only when no document could be read.
func (a *Adapter) Fetch(ctx context.Context) ([]byte, error) {
	var bundle Bundle
	var errs []error

	for _, u := range a.cfg.Documents {
		body, err := a.fetcher.Get(ctx, u, http.Header{"Accept": {"text/html,text/plain;q=0.9,*/*;q=0.5"}})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("aiextract %s: document %s unavailable: %v", a.cfg.Key, u, err)
			errs = append(errs, err)
			continue
		}
		text := truncate(visibleText(body), a.cfg.TextLimit())
		if text == "" {
			continue
		}
		bundle.Documents = append(bundle.Documents, Document{URL: u, Text: text})
	}

	if len(bundle.Documents) == 0 {
		if len(errs) == 0 {
			errs = append(errs, fmt.Errorf("%w: no document had readable text", domain.ErrNetwork))
		}
		return nil, errors.Join(errs...)
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("encode document bundle: %w", err)
	}
	return data, nil
}

// Parse sends each document's text for extraction. Documents whose
// extraction fails or lacks a company name are dropped and reported through
// a *domain.SkippedError alongside the kept records.
func (a *Adapter) Parse(ctx context.Context, payload []byte) ([]domain.RawRecord, error) {
	if a.llm == nil {
		return nil, &domain.ConfigurationError{SourceKey: a.cfg.Key, Setting: "LLM API key"}
	}

	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, &domain.ParseError{SourceKey: a.cfg.Key, Err: err}
	}

	var records []domain.RawRecord
	var dropped []error

	for _, doc := range bundle.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := truncate(doc.Text, a.cfg.TextLimit())

		response, err := a.extract(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			dropped = append(dropped, &domain.ExtractionError{Origin: doc.URL, Reason: err.Error()})
			continue
		}

		e, err := ParseExtraction(response)
		if err != nil {
			dropped = append(dropped, &domain.ExtractionError{Origin: doc.URL, Reason: err.Error()})
			continue
		}

		records = append(records, domain.RawRecord{
			SourceKey: a.cfg.Key,
			Kind:      domain.KindFailure,
			Origin:    doc.URL,
			Fields: map[string]any{
				normalisers.FieldName:               e.CompanyName,
				normalisers.FieldIndustry:           e.Industry,
				normalisers.FieldDecisionType:       e.DecisionType,
				normalisers.FieldLogicUsed:          e.LogicUsed,
				normalisers.FieldFailureReason:      e.FailureReason,
				normalisers.FieldMitigationStrategy: e.MitigationStrategy,
				normalisers.FieldTags:               e.Tags,
				normalisers.FieldSourceURL:          doc.URL,
			},
		})
	}

	if len(dropped) > 0 {
		logger.Debug("aiextract %s: dropped %d of %d documents", a.cfg.Key, len(dropped), len(bundle.Documents))
		return records, &domain.SkippedError{SourceKey: a.cfg.Key, Causes: dropped}
	}
	return records, nil
}

// extract returns the model response for text, from the memo when present.
func (a *Adapter) extract(ctx context.Context, text string) (string, error) {
	call := func(ctx context.Context) ([]byte, error) {
		logger.Debug("aiextract %s: sending %d chars to %s", a.cfg.Key, len(text), a.llm.ModelName())
		out, err := a.llm.GenerateJSON(ctx, Prompt(text))
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	if a.memo == nil {
		out, err := call(ctx)
		return string(out), err
	}

	res, err := a.memo.GetOrFetch(ctx, MemoKey(text), MemoTTL, call)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return "", fe.Err
		}
		return "", err
	}
	return string(res.Entry.Payload), nil
}

// MemoKey is the cache key for an extraction of text.
func MemoKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return memoPrefix + hex.EncodeToString(sum[:])
}
