// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package anthropic implements provider.Completer on the Anthropic
// Messages API.
package anthropic

import (
	"context"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arc-dev/mos/internal/provider"
	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey    string
	BaseURL   string // optional, useful for testing against a mock server
	Model     string
	MaxTokens int
}

// Completer sends one non-streaming Messages request per call.
type Completer struct {
	client anthropicsdk.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Completer      = (*Completer)(nil)
	_ provider.HealthReporter = (*Completer)(nil)
)

// New returns a Completer. The API key is required.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, moserr.New(moserr.CodeProviderRequestInvalid, "anthropic: missing api_key in config",
			moserr.FieldProvider(provider.NameAnthropic))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Completer{
		client: anthropicsdk.NewClient(opts...),
		config: cfg,
		health: provider.MustHealthTracker(),
	}, nil
}

func (c *Completer) Name() string { return provider.NameAnthropic }

func (c *Completer) HealthMetrics() health.Metrics { return c.health.HealthMetrics() }

// Complete returns the first text block of the reply.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, buildParams(c.config, system, user))
	if err != nil {
		c.health.RecordFailure()
		return "", provider.UpstreamError(provider.NameAnthropic, err, "creating message")
	}
	c.health.RecordSuccess()

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", moserr.New(moserr.CodeProviderResponseInvalid, "anthropic: response has no text block",
		moserr.FieldProvider(provider.NameAnthropic))
}

func buildParams(cfg Config, system, user string) anthropicsdk.MessageNewParams {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	return params
}
