package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

func testFactory() *Factory {
	return NewFactory(Deps{
		Fetcher: httpfetch.New(httpfetch.Config{}),
		Curated: curated.New(""),
	})
}

func TestFactory_SupportedKinds(t *testing.T) {
	kinds := testFactory().SupportedKinds()
	assert.Equal(t, []domain.AdapterKind{
		domain.AdapterAIExtract,
		domain.AdapterSearchAPI,
		domain.AdapterTabular,
		domain.AdapterWebScrape,
	}, kinds)
}

func TestFactory_CreateEachKind(t *testing.T) {
	f := testFactory()
	tests := []domain.SourceConfig{
		{Key: "failory", Adapter: domain.AdapterWebScrape, Record: domain.KindFailure, URL: "https://example.com"},
		{Key: "layoffs", Adapter: domain.AdapterTabular, Record: domain.KindLayoff, URL: "https://example.com/l.csv"},
		{Key: "hn", Adapter: domain.AdapterSearchAPI, Record: domain.KindProductLaunch, URL: "https://example.com/search", Queries: []string{"Show HN"}},
		{Key: "pm", Adapter: domain.AdapterAIExtract, Record: domain.KindFailure, Documents: []string{"https://example.com/pm"}},
	}

	for _, src := range tests {
		t.Run(src.Key, func(t *testing.T) {
			adapter, err := f.Create(src)
			require.NoError(t, err)
			assert.Equal(t, src.Key, adapter.Key())
			assert.Equal(t, src.Record, adapter.Kind())
		})
	}
}

func TestFactory_AIExtractWithoutLLMIsSkipped(t *testing.T) {
	adapter, err := testFactory().Create(domain.SourceConfig{
		Key: "pm", Adapter: domain.AdapterAIExtract, Record: domain.KindFailure,
		Documents: []string{"https://example.com/pm"},
	})
	require.NoError(t, err)

	err = adapter.Validate(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestFactory_UnknownKind(t *testing.T) {
	_, err := testFactory().Create(domain.SourceConfig{Key: "x", Adapter: "rss"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestFactory_RegisterOverrides(t *testing.T) {
	f := testFactory()
	called := false
	f.Register(domain.AdapterTabular, func(src domain.SourceConfig) (driven.SourceAdapter, error) {
		called = true
		return nil, domain.ErrNotFound
	})

	_, err := f.Create(domain.SourceConfig{Key: "t", Adapter: domain.AdapterTabular})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, called)
}
