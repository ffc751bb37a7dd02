// Package app wires the concrete adapters into the services the CLI runs.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/cache/badger"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/llm/langchain"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/intel-ingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/intel-ingest/internal/config"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/intel-ingest/internal/core/services"
	"github.com/custodia-labs/intel-ingest/internal/logger"
	"github.com/custodia-labs/intel-ingest/internal/normalisers"
	"github.com/custodia-labs/intel-ingest/internal/sources"
	"github.com/custodia-labs/intel-ingest/internal/sources/curated"
	"github.com/custodia-labs/intel-ingest/internal/sources/httpfetch"
)

// Getenv reads credentials. Tests replace it.
var Getenv = os.Getenv

// Build loads configuration and opens the stores for one command.
func Build(_ context.Context, opts cli.Options) (*cli.Services, error) {
	store, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}
	cfg.ResolveCredentials(Getenv)
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	if cfg.LogFile != "" {
		f, err := logger.OpenFile(cfg.LogFile)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error {
			logger.SetFile(nil)
			return f.Close()
		})
	}

	cache, err := badger.Open(badger.Options{Dir: cfg.CacheDir})
	if err != nil {
		return fail(fmt.Errorf("opening cache: %w", err))
	}
	closers = append(closers, cache.Close)

	db, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fail(fmt.Errorf("opening record store: %w", err))
	}
	closers = append(closers, db.Close)
	logger.Debug("app: record store at %s, cache at %s", db.Path(), cfg.CacheDir)

	llm, err := newLLM(cfg)
	if err != nil {
		return fail(err)
	}

	factory := sources.NewFactory(sources.Deps{
		Fetcher: httpfetch.New(httpfetch.Config{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout.Std(),
			Retries:   cfg.HTTPRetries,
		}),
		LLM:     llm,
		Memo:    cache,
		Curated: curated.New(cfg.CuratedDir),
	})

	srcs, err := cfg.DomainSources()
	if err != nil {
		return fail(err)
	}

	pipeline := services.NewOrchestrator(srcs, factory, cache, normalisers.Default(), db, db,
		services.WithWorkers(cfg.Workers),
		services.WithProgress(opts.Progress),
	)

	return &cli.Services{
		Pipeline:   pipeline,
		RunLog:     services.NewRunLog(db),
		Sources:    srcs,
		ConfigPath: store.Path(),
		Close:      closeAll,
	}, nil
}

// newLLM returns the configured extraction model, or nil when no
// credential is present. AI extraction sources are then skipped.
func newLLM(cfg *config.Config) (driven.LLMService, error) {
	if cfg.LLM.APIKey == "" {
		logger.Debug("app: no LLM credential, extraction sources will be skipped")
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		svc, err := langchain.NewLLMService(langchain.LLMConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout.Std(),
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		svc, err := gemini.NewLLMService(gemini.LLMConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout.Std(),
			Retries: cfg.LLM.Retries,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}
