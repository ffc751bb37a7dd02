// Package config defines the pipeline configuration, its defaults and
// validation. The TOML file adapter lives in adapters/driven/config/file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Environment variables holding LLM credentials.
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvLLMKey    = "INTEL_LLM_API_KEY"
)

// Defaults.
const (
	DefaultWorkers     = 1
	DefaultHTTPTimeout = 30 * time.Second
	DefaultLLMTimeout  = 60 * time.Second
	DefaultDirName     = ".intel-ingest"
)

// Duration is a time.Duration written as a string ("24h", "90m") in TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: duration %q", domain.ErrInvalidInput, s)
	}
	*d = Duration(v)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the whole pipeline configuration.
type Config struct {
	// DataDir holds the SQLite database and the cache directory.
	DataDir string `toml:"data_dir,omitempty"`

	// CacheDir overrides the Badger cache location (default: DataDir/cache).
	CacheDir string `toml:"cache_dir,omitempty"`

	// CuratedDir holds YAML files overriding the embedded curated sets.
	CuratedDir string `toml:"curated_dir,omitempty"`

	// LogFile receives JSON logs at debug level when set.
	LogFile string `toml:"log_file,omitempty"`

	Workers     int      `toml:"workers"`
	UserAgent   string   `toml:"user_agent,omitempty"`
	HTTPTimeout Duration `toml:"http_timeout"`
	HTTPRetries int      `toml:"http_retries"`

	LLM     LLMConfig      `toml:"llm"`
	Sources []SourceConfig `toml:"sources"`
}

// LLMConfig selects and configures the extraction model.
type LLMConfig struct {
	Provider string   `toml:"provider"`
	Model    string   `toml:"model,omitempty"`
	BaseURL  string   `toml:"base_url,omitempty"`
	Timeout  Duration `toml:"timeout"`
	Retries  int      `toml:"retries"`

	// APIKey is read from the environment, never from the file.
	APIKey string `toml:"-"`
}

// SourceConfig is one [[sources]] table.
type SourceConfig struct {
	Key        string              `toml:"key"`
	Kind       string              `toml:"kind"`
	Record     string              `toml:"record"`
	Name       string              `toml:"name,omitempty"`
	URL        string              `toml:"url,omitempty"`
	TTL        Duration            `toml:"ttl"`
	Enabled    *bool               `toml:"enabled,omitempty"`
	MinRecords int                 `toml:"min_records,omitempty"`
	Curated    string              `toml:"curated,omitempty"`
	Queries    []string            `toml:"queries,omitempty"`
	Documents  []string            `toml:"documents,omitempty"`
	MaxChars   int                 `toml:"max_chars,omitempty"`
	Selectors  map[string][]string `toml:"selectors,omitempty"`
}

// IsEnabled reports whether the source runs. Sources are enabled unless
// explicitly disabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Domain converts the table into a domain.SourceConfig.
func (s SourceConfig) Domain() (domain.SourceConfig, error) {
	record, err := domain.ParseRecordKind(s.Record)
	if err != nil {
		return domain.SourceConfig{}, fmt.Errorf("source %s: record %q: %w", s.Key, s.Record, err)
	}
	name := s.Name
	if name == "" {
		name = s.Key
	}
	return domain.SourceConfig{
		Key:        s.Key,
		Adapter:    domain.AdapterKind(strings.ToLower(strings.TrimSpace(s.Kind))),
		Record:     record,
		Name:       name,
		URL:        s.URL,
		TTL:        s.TTL.Std(),
		Enabled:    s.IsEnabled(),
		MinRecords: s.MinRecords,
		Curated:    s.Curated,
		Queries:    s.Queries,
		Documents:  s.Documents,
		MaxChars:   s.MaxChars,
		Selectors:  s.Selectors,
	}, nil
}

// ApplyDefaults fills unset global settings.
func (c *Config) ApplyDefaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, DefaultDirName, "data")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataDir, "cache")
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.HTTPRetries < 0 {
		c.HTTPRetries = 0
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = Duration(DefaultLLMTimeout)
	}
	if c.Sources == nil {
		c.Sources = DefaultSources()
	}
	return nil
}

// ResolveCredentials reads the LLM key for the configured provider.
// The provider-specific variable wins over INTEL_LLM_API_KEY.
func (c *Config) ResolveCredentials(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var primary string
	switch c.LLM.Provider {
	case ProviderGemini:
		primary = EnvGeminiKey
	case ProviderOpenAI:
		primary = EnvOpenAIKey
	}
	if key := strings.TrimSpace(getenv(primary)); primary != "" && key != "" {
		c.LLM.APIKey = key
		return
	}
	c.LLM.APIKey = strings.TrimSpace(getenv(EnvLLMKey))
}

// Validate checks global settings and every source.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", domain.ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, c.LLM.Provider)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if seen[src.Key] {
			return fmt.Errorf("%w: duplicate source key %q", domain.ErrInvalidInput, src.Key)
		}
		seen[src.Key] = true

		ds, err := src.Domain()
		if err != nil {
			return err
		}
		if err := ds.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DomainSources converts every source table.
func (c *Config) DomainSources() ([]domain.SourceConfig, error) {
	out := make([]domain.SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		ds, err := src.Domain()
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Default returns the built-in configuration with defaults applied.
func Default() (*Config, error) {
	c := &Config{}
	if err := c.ApplyDefaults(); err != nil {
		return nil, err
	}
	return c, nil
}
