// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/config"
	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/provider"
	anthropicprov "github.com/arc-dev/mos/internal/provider/anthropic"
	googleprov "github.com/arc-dev/mos/internal/provider/google"
	openaiprov "github.com/arc-dev/mos/internal/provider/openai"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/secrets"
	"github.com/arc-dev/mos/internal/store"
	_ "github.com/arc-dev/mos/internal/store/memstore" // register memory backend
	_ "github.com/arc-dev/mos/internal/store/sqlite"   // register sqlite backend
	"github.com/arc-dev/mos/internal/suggest"
	"github.com/arc-dev/mos/internal/summarize"
	"github.com/arc-dev/mos/internal/tracing"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// App holds every wired subsystem. Indexer and Summarizer are nil when
// no embedding or chat provider has a usable key.
type App struct {
	Config     *config.Config
	Store      store.Store
	Graph      *graph.Engine
	Search     *search.Engine
	Indexer    *search.Indexer
	Summarizer *summarize.Summarizer
	Suggest    *suggest.Ranker
	Sync       *sds.Connector
	Metrics    *metrics.Collector
	Health     map[string]provider.HealthReporter
	Logger     *slog.Logger

	shutdownTracing tracing.ShutdownFunc
}

type embedderFactory func(cfg *config.Config, pc config.ProviderConfig) (provider.Embedder, error)

// embedderFactories maps embedding provider names to their constructors.
// Declared as a variable so tests can inject fakes.
var embedderFactories = map[string]embedderFactory{
	provider.NameOpenAI: func(cfg *config.Config, pc config.ProviderConfig) (provider.Embedder, error) {
		e, err := openaiprov.New(openaiprov.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.Endpoint,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	},
	provider.NameGoogle: func(cfg *config.Config, pc config.ProviderConfig) (provider.Embedder, error) {
		e, err := googleprov.New(googleprov.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.Endpoint,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	},
}

type completerFactory func(cfg *config.Config, pc config.ProviderConfig) (provider.Completer, error)

var completerFactories = map[string]completerFactory{
	provider.NameAnthropic: func(cfg *config.Config, pc config.ProviderConfig) (provider.Completer, error) {
		c, err := anthropicprov.New(anthropicprov.Config{
			APIKey:    pc.APIKey,
			BaseURL:   pc.Endpoint,
			Model:     cfg.Chat.Model,
			MaxTokens: cfg.Chat.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	},
}

// usableKey reports whether key is set and was resolved from the keyring.
func usableKey(key string) bool {
	return key != "" && !secrets.IsKeyringURI(key)
}

// Wire opens the store and builds the engines on top of it. Missing
// provider keys degrade features instead of failing: search runs
// keyword-only and summaries report the provider as unconfigured.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, version)
	if err != nil {
		return nil, moserr.Wrap(err, moserr.CodeCLISetupFailure, "setting up tracing")
	}

	s, err := store.Open(cfg.Storage.Store())
	if err != nil {
		_ = shutdown(ctx)
		return nil, moserr.Wrap(err, moserr.CodeCLISetupFailure, "opening store")
	}

	m := metrics.New()
	app := &App{
		Config:          cfg,
		Store:           s,
		Metrics:         m,
		Health:          map[string]provider.HealthReporter{},
		Logger:          logger,
		shutdownTracing: shutdown,
	}

	app.Graph = graph.NewEngine(s, graph.WithLogger(logger))

	searchOpts := []search.Option{
		search.WithMetrics(m),
		search.WithLogger(logger),
		search.WithThreshold(cfg.Search.SimilarityThreshold),
		search.WithDefaultLimit(cfg.Search.DefaultLimit),
	}
	if emb := newEmbedder(cfg, logger); emb != nil {
		app.Health[cfg.Embeddings.Provider] = emb
		app.Indexer = search.NewIndexer(s, emb, m, logger)
		searchOpts = append(searchOpts, search.WithEmbedder(emb))
	}
	app.Search = search.New(s, searchOpts...)

	if chat := newCompleter(cfg, logger); chat != nil {
		if hr, ok := chat.(provider.HealthReporter); ok {
			app.Health[cfg.Chat.Provider] = hr
		}
		app.Summarizer = summarize.New(app.Graph, app.Search, chat, logger)
	}

	app.Suggest = suggest.NewRanker(s,
		suggest.WithStaleAfter(cfg.Suggestions.StaleAfter),
		suggest.WithLimit(cfg.Suggestions.Limit),
		suggest.WithLogger(logger),
	)
	app.Sync = sds.New(app.Graph, sds.WithLogger(logger), sds.WithMetrics(m))

	return app, nil
}

// newEmbedder returns the breaker-wrapped embedder, or nil when the
// provider has no usable key or fails to build.
func newEmbedder(cfg *config.Config, logger *slog.Logger) *provider.BreakerEmbedder {
	name := cfg.Embeddings.Provider
	pc := cfg.Provider(name)
	if !usableKey(pc.APIKey) {
		logger.Warn("no api key for embedding provider, search is keyword only", slog.String("provider", name))
		return nil
	}
	factory, ok := embedderFactories[name]
	if !ok {
		logger.Warn("unknown embedding provider", slog.String("provider", name))
		return nil
	}
	emb, err := factory(cfg, pc)
	if err != nil {
		logger.Warn("failed to create embedding provider", slog.String("provider", name), slog.Any("error", err))
		return nil
	}
	return provider.NewBreakerEmbedder(emb, cfg.Embeddings.Breaker, logger)
}

func newCompleter(cfg *config.Config, logger *slog.Logger) provider.Completer {
	name := cfg.Chat.Provider
	pc := cfg.Provider(name)
	if !usableKey(pc.APIKey) {
		logger.Info("no api key for chat provider, summaries disabled", slog.String("provider", name))
		return nil
	}
	factory, ok := completerFactories[name]
	if !ok {
		logger.Warn("unknown chat provider", slog.String("provider", name))
		return nil
	}
	chat, err := factory(cfg, pc)
	if err != nil {
		logger.Warn("failed to create chat provider", slog.String("provider", name), slog.Any("error", err))
		return nil
	}
	return chat
}

// Close flushes traces and closes the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// openApp loads config and wires the App for a command. The caller must
// Close it.
func openApp(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return Wire(cmd.Context(), cfg, slog.Default())
}

func (a *App) requireSummarizer() (*summarize.Summarizer, error) {
	if a.Summarizer == nil {
		return nil, moserr.Errorf(moserr.CodeProviderRequestInvalid,
			"chat provider %q has no api key; run `mos secret set %s`", a.Config.Chat.Provider, a.Config.Chat.Provider)
	}
	return a.Summarizer, nil
}
