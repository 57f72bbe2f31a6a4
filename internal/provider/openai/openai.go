// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package openai implements provider.Embedder on the OpenAI embeddings API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/arc-dev/mos/internal/provider"
	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

const (
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 1536
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int
}

// Embedder calls POST /embeddings once per text.
type Embedder struct {
	client openaisdk.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Embedder       = (*Embedder)(nil)
	_ provider.HealthReporter = (*Embedder)(nil)
)

// New returns an Embedder. The API key is required.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, moserr.New(moserr.CodeProviderRequestInvalid, "openai: missing api_key in config",
			moserr.FieldProvider(provider.NameOpenAI))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{
		client: openaisdk.NewClient(opts...),
		config: cfg,
		health: provider.MustHealthTracker(),
	}, nil
}

func (e *Embedder) Name() string    { return provider.NameOpenAI }
func (e *Embedder) Model() string   { return e.config.Model }
func (e *Embedder) Dimensions() int { return e.config.Dimensions }

func (e *Embedder) HealthMetrics() health.Metrics { return e.health.HealthMetrics() }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model:      openaisdk.EmbeddingModel(e.config.Model),
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
		Dimensions: param.NewOpt(int64(e.config.Dimensions)),
	})
	if err != nil {
		e.health.RecordFailure()
		return nil, provider.UpstreamError(provider.NameOpenAI, err, "creating embedding")
	}
	e.health.RecordSuccess()

	if len(resp.Data) == 0 {
		return nil, moserr.New(moserr.CodeProviderResponseInvalid, "openai: response has no embedding",
			moserr.FieldProvider(provider.NameOpenAI))
	}
	vec := resp.Data[0].Embedding
	if len(vec) != e.config.Dimensions {
		return nil, moserr.New(moserr.CodeProviderResponseInvalid, "openai: unexpected embedding dimension",
			moserr.FieldProvider(provider.NameOpenAI),
			moserr.Field("want", e.config.Dimensions), moserr.Field("got", len(vec)))
	}
	return provider.Float32s(vec), nil
}
