package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/config"
	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

func TestNewConfigStore_DefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".intel-ingest", "config.toml"), store.Path())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.False(t, store.Exists())

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Sources, 5)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, config.ProviderGemini, cfg.LLM.Provider)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/tmp/intel"
workers = 3
http_timeout = "10s"
http_retries = 2

[llm]
provider = "openai"
model = "gpt-4o-mini"

[[sources]]
key = "layoffs"
kind = "tabular"
record = "layoff"
url = "https://example.com/layoffs.csv"
ttl = "6h"

[[sources]]
key = "failory"
kind = "webscrape"
record = "failure"
url = "https://example.com/cemetery"
enabled = false
min_records = 4

[sources.selectors]
container = [".card"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/intel", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/intel", "cache"), cfg.CacheDir)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout.Std())
	assert.Equal(t, config.ProviderOpenAI, cfg.LLM.Provider)
	require.Len(t, cfg.Sources, 2)

	sources, err := cfg.DomainSources()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, sources[0].TTL)
	assert.True(t, sources[0].Enabled)
	assert.False(t, sources[1].Enabled)
	assert.Equal(t, 4, sources[1].Threshold())
	assert.Equal(t, []string{".card"}, sources[1].Selectors["container"])
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("wrokers = 2\n"), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_RejectsInvalidSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[[sources]]
key = "rss"
kind = "rss"
record = "failure"
url = "https://example.com/feed"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSave_RoundTripsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	cfg, err := config.Default()
	require.NoError(t, err)
	require.NoError(t, store.Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Sources, len(cfg.Sources))
	assert.Equal(t, cfg.Sources[0].TTL, loaded.Sources[0].TTL)
	assert.Equal(t, cfg.DataDir, loaded.DataDir)
}
