package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is a source-specific record emitted by a source adapter's parse step.
// It is never persisted directly; normalisers re-express it as a Record and
// keep its JSON form as provenance.
type RawRecord struct {
	// SourceKey links to the SourceConfig that produced this record.
	SourceKey string `json:"source_key"`

	// Kind is the normalised record kind this raw record maps to.
	Kind RecordKind `json:"kind"`

	// Origin is the original location (URL, CSV row reference, etc).
	Origin string `json:"origin,omitempty"`

	// Fields contains the adapter-specific extracted values.
	Fields map[string]any `json:"fields"`

	// Curated marks records that came from a curated fallback set.
	Curated bool `json:"curated,omitempty"`
}

// String returns a trimmed string field, or "" if absent.
// Numbers are formatted without loss.
func (r RawRecord) String(key string) string {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Int returns an integer field. The second value is false when the field is
// absent or cannot be coerced.
func (r RawRecord) Int(key string) (int, bool) {
	switch t := r.Fields[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case *int:
		if t == nil {
			return 0, false
		}
		return *t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float returns a float field. The second value is false when the field is
// absent or cannot be coerced.
func (r RawRecord) Float(key string) (float64, bool) {
	switch t := r.Fields[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case *float64:
		if t == nil {
			return 0, false
		}
		return *t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings returns a string slice field. A comma-separated string is split.
func (r RawRecord) Strings(key string) []string {
	switch t := r.Fields[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// Provenance returns the JSON form of the raw record.
func (r RawRecord) Provenance() (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshalling provenance: %w", err)
	}
	return data, nil
}
