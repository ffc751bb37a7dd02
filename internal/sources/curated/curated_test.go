package curated

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

func TestEmbeddedSets(t *testing.T) {
	lib := New("")

	names, err := lib.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"failory", "layoffs", "postmortems"}, names)

	for _, name := range names {
		set, err := lib.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, 1, set.Version, name)
		assert.NotEmpty(t, set.Records, name)
	}
}

func TestRecords_MarkedCurated(t *testing.T) {
	recs, err := New("").Records("failory", "failory", domain.KindFailure)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(recs), domain.DefaultMinRecords)

	first := recs[0]
	assert.True(t, first.Curated)
	assert.Equal(t, "failory", first.SourceKey)
	assert.Equal(t, domain.KindFailure, first.Kind)
	assert.Equal(t, "curated:failory#0", first.Origin)
	assert.Equal(t, "Quibi", first.String("name"))
	year, ok := first.Int("year")
	assert.True(t, ok)
	assert.Equal(t, 2020, year)
	assert.Len(t, first.Strings("tags"), 3)
}

func TestRecords_Deterministic(t *testing.T) {
	lib := New("")
	a, err := lib.Records("layoffs", "layoffs", domain.KindLayoff)
	require.NoError(t, err)
	b, err := lib.Records("layoffs", "layoffs", domain.KindLayoff)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "2022-11-09", a[0].String("date"))
}

func TestRecords_KindMismatch(t *testing.T) {
	_, err := New("").Records("layoffs", "x", domain.KindFunding)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_Missing(t *testing.T) {
	_, err := New("").Load("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_RejectsPaths(t *testing.T) {
	_, err := New("").Load("../secrets")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layoffs.yaml"), []byte(`
version: 2
kind: layoff
records:
  - {company: Acme, count: 5, date: "2024-02-01"}
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "funding.yaml"), []byte(`
version: 1
kind: funding
records:
  - {company: Acme, round_type: Seed, date: "2021-01-01"}
`), 0o600))

	lib := New(dir)

	set, err := lib.Load("layoffs")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Version)
	require.Len(t, set.Records, 1)
	assert.Equal(t, "Acme", set.Records[0]["company"])

	recs, err := lib.Records("funding", "vc", domain.KindFunding)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	names, err := lib.Names()
	require.NoError(t, err)
	assert.Contains(t, names, "funding")
	assert.Contains(t, names, "failory")
}

func TestLoad_InvalidOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("records: [}"), 0o600))

	_, err := New(dir).Load("bad")
	assert.ErrorIs(t, err, domain.ErrParse)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unversioned.yaml"), []byte("records: []"), 0o600))
	_, err = New(dir).Load("unversioned")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestFallback(t *testing.T) {
	lib := New("")

	fb := NewFallback(lib, domain.SourceConfig{Key: "layoffs-csv", Record: domain.KindLayoff, Curated: "layoffs"})
	assert.True(t, fb.HasCurated())
	recs, err := fb.Curated()
	require.NoError(t, err)
	assert.Len(t, recs, 10)
	assert.Equal(t, "layoffs-csv", recs[0].SourceKey)

	none := NewFallback(lib, domain.SourceConfig{Key: "hn", Record: domain.KindFailure})
	assert.False(t, none.HasCurated())
	_, err = none.Curated()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
