// Package curated loads the manually vetted fallback record sets.
//
// Sets are versioned YAML assets embedded in the binary. A set with the same
// name in the override directory replaces the embedded one, so fallback data
// can be extended without a rebuild.
package curated

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

// Set is one curated fallback file.
type Set struct {
	Version int              `yaml:"version"`
	Kind    string           `yaml:"kind"`
	Records []map[string]any `yaml:"records"`
}

// Library resolves curated sets by name.
type Library struct {
	overrideDir string
}

// New creates a Library. An empty overrideDir uses only embedded sets.
func New(overrideDir string) *Library {
	return &Library{overrideDir: overrideDir}
}

// Load reads the named set. Returns domain.ErrNotFound if no set exists.
func (l *Library) Load(name string) (*Set, error) {
	data, err := l.read(name)
	if err != nil {
		return nil, err
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("curated set %s: %w: %w", name, domain.ErrParse, err)
	}
	if set.Version < 1 {
		return nil, fmt.Errorf("curated set %s: %w: missing version", name, domain.ErrParse)
	}
	return &set, nil
}

// Records loads the named set as raw records for a source.
// The set's kind must match kind.
func (l *Library) Records(name, sourceKey string, kind domain.RecordKind) ([]domain.RawRecord, error) {
	set, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	if set.Kind != "" && domain.RecordKind(set.Kind) != kind {
		return nil, fmt.Errorf("curated set %s holds %s records, source %s wants %s: %w",
			name, set.Kind, sourceKey, kind, domain.ErrInvalidInput)
	}

	records := make([]domain.RawRecord, 0, len(set.Records))
	for i, fields := range set.Records {
		records = append(records, domain.RawRecord{
			SourceKey: sourceKey,
			Kind:      kind,
			Origin:    fmt.Sprintf("curated:%s#%d", name, i),
			Fields:    fields,
			Curated:   true,
		})
	}
	return records, nil
}

// Names lists every available set, embedded and overridden.
func (l *Library) Names() ([]string, error) {
	seen := make(map[string]struct{})
	entries, err := fs.Glob(embedded, "data/*.yaml")
	if err != nil {
		return nil, err
	}
	if l.overrideDir != "" {
		more, err := filepath.Glob(filepath.Join(l.overrideDir, "*.yaml"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, more...)
	}
	for _, e := range entries {
		seen[strings.TrimSuffix(filepath.Base(e), ".yaml")] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (l *Library) read(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("curated set %q: %w", name, domain.ErrInvalidInput)
	}
	file := name + ".yaml"

	if l.overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(l.overrideDir, file))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read curated override %s: %w", name, err)
		}
	}

	data, err := embedded.ReadFile("data/" + file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("curated set %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read curated set %s: %w", name, err)
	}
	return data, nil
}
