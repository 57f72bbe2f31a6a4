// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package google implements provider.Embedder on the Gemini API.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/arc-dev/mos/internal/provider"
	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int
}

type Embedder struct {
	client *genai.Client
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
		return nil, moserr.New(moserr.CodeProviderRequestInvalid, "google: missing api_key in config",
			moserr.FieldProvider(provider.NameGoogle))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, moserr.Wrapf(err, moserr.CodeProviderRequestInvalid, "google: creating client")
	}

	return &Embedder{
		client: client,
		config: cfg,
		health: provider.MustHealthTracker(),
	}, nil
}

func (e *Embedder) Name() string    { return provider.NameGoogle }
func (e *Embedder) Model() string   { return e.config.Model }
func (e *Embedder) Dimensions() int { return e.config.Dimensions }

func (e *Embedder) HealthMetrics() health.Metrics { return e.health.HealthMetrics() }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(e.config.Dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.config.Model, genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dims})
	if err != nil {
		e.health.RecordFailure()
		return nil, provider.UpstreamError(provider.NameGoogle, err, "embedding content")
	}
	e.health.RecordSuccess()

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, moserr.New(moserr.CodeProviderResponseInvalid, "google: response has no embedding",
			moserr.FieldProvider(provider.NameGoogle))
	}
	vec := resp.Embeddings[0].Values
	if len(vec) != e.config.Dimensions {
		return nil, moserr.New(moserr.CodeProviderResponseInvalid, "google: unexpected embedding dimension",
			moserr.FieldProvider(provider.NameGoogle),
			moserr.Field("want", e.config.Dimensions), moserr.Field("got", len(vec)))
	}
	return vec, nil
}
