package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown adapter or record kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrNetwork indicates a source was unreachable or timed out.
	// Recoverable: triggers the cache and curated fallbacks.
	ErrNetwork = errors.New("network error")

	// ErrParse indicates a structural mismatch in a fetched payload.
	// Recoverable at record granularity.
	ErrParse = errors.New("parse error")

	// ErrExtraction indicates an LLM response was malformed or lacked a required field.
	// The record is dropped and the same text is never retried.
	ErrExtraction = errors.New("extraction error")

	// ErrConfiguration indicates a source is missing a required setting or credential.
	// The source is skipped for the run.
	ErrConfiguration = errors.New("configuration error")

	// ErrPersistence indicates the record store itself failed.
	// This is the only condition that aborts a run.
	ErrPersistence = errors.New("persistence error")
)

// FetchError is returned by a CacheStore when a refetch fails.
// Stale holds the previous entry, if one exists, so callers can
// apply their own fallback policy.
type FetchError struct {
	SourceKey string
	Err       error
	Stale     *CacheEntry
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceKey, e.Err)
}

// Unwrap exposes both the network sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// ParseError describes a payload or fragment that could not be parsed.
type ParseError struct {
	SourceKey string
	Origin    string
	Err       error
}

func (e *ParseError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("parse %s (%s): %v", e.SourceKey, e.Origin, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.SourceKey, e.Err)
}

// Unwrap exposes both the parse sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ExtractionError describes a soft LLM extraction miss.
type ExtractionError struct {
	Origin string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %s", e.Origin, e.Reason)
}

// Unwrap returns ErrExtraction.
func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

// SkippedError reports fragments a parse dropped while still returning the
// rest. It is a soft failure: the returned records are kept.
type SkippedError struct {
	SourceKey string
	Causes    []error
}

func (e *SkippedError) Error() string {
	if len(e.Causes) == 1 {
		return fmt.Sprintf("source %s: skipped 1 fragment: %v", e.SourceKey, e.Causes[0])
	}
	return fmt.Sprintf("source %s: skipped %d fragments", e.SourceKey, len(e.Causes))
}

// Unwrap returns the individual causes.
func (e *SkippedError) Unwrap() []error {
	return e.Causes
}

// Count returns the number of dropped fragments.
func (e *SkippedError) Count() int {
	return len(e.Causes)
}

// ConfigurationError names the missing setting that disables a source.
type ConfigurationError struct {
	SourceKey string
	Setting   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %s: missing %s", e.SourceKey, e.Setting)
}

// Unwrap returns ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ErrorClass is the taxonomy label recorded in run summaries.
type ErrorClass string

const (
	ErrorClassNone          ErrorClass = ""
	ErrorClassNetwork       ErrorClass = "network"
	ErrorClassParse         ErrorClass = "parse"
	ErrorClassExtraction    ErrorClass = "extraction"
	ErrorClassConfiguration ErrorClass = "configuration"
	ErrorClassPersistence   ErrorClass = "persistence"
	ErrorClassCancelled     ErrorClass = "cancelled"
	ErrorClassUnknown       ErrorClass = "unknown"
)

// Classify maps an error onto the pipeline error taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClassNone
	case errors.Is(err, ErrPersistence):
		return ErrorClassPersistence
	case errors.Is(err, ErrConfiguration):
		return ErrorClassConfiguration
	case errors.Is(err, ErrNetwork):
		return ErrorClassNetwork
	case errors.Is(err, ErrParse):
		return ErrorClassParse
	case errors.Is(err, ErrExtraction):
		return ErrorClassExtraction
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassCancelled
	default:
		return ErrorClassUnknown
	}
}
