package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/intel-ingest/internal/config"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

// FileName is the configuration file name inside the config directory.
const FileName = "config.toml"

// ConfigStore reads and writes the pipeline configuration as TOML.
type ConfigStore struct {
	filePath string
}

// NewConfigStore creates a store for the file at path.
// If path is empty, defaults to ~/.intel-ingest/config.toml.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, config.DefaultDirName, FileName)
	}
	return &ConfigStore{filePath: path}, nil
}

// Path returns the configuration file location.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Exists reports whether the configuration file is present.
func (s *ConfigStore) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Load reads the file, applies defaults and validates the result.
// A missing file yields the defaults.
func (s *ConfigStore) Load() (*config.Config, error) {
	cfg := &config.Config{}

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("%w: config %s: %s", domain.ErrInvalidInput, s.filePath, strict.String())
			}
			return nil, fmt.Errorf("%w: config %s: %v", domain.ErrInvalidInput, s.filePath, err)
		}
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", s.filePath, err)
	}
	return cfg, nil
}

// Save writes cfg to the file, creating its directory.
func (s *ConfigStore) Save(cfg *config.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}
