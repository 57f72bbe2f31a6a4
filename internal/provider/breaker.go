// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

// BreakerConfig controls when an embedding provider is short-circuited.
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// DefaultBreakerConfig trips after 3 calls with a 60% failure rate and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  3,
	}
}

// BreakerEmbedder wraps an Embedder in a circuit breaker. While the breaker
// is open Embed fails fast with CodeProviderUnavailable, which hybrid search
// treats like any other embedding failure.
type BreakerEmbedder struct {
	Embedder
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var (
	_ Embedder       = (*BreakerEmbedder)(nil)
	_ HealthReporter = (*BreakerEmbedder)(nil)
)

// NewBreakerEmbedder wraps next. A nil logger uses slog.Default().
func NewBreakerEmbedder(next Embedder, cfg BreakerConfig, logger *slog.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BreakerEmbedder{Embedder: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embeddings-" + next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// A caller giving up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return b
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.Embedder.Embed(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, moserr.Wrap(err, moserr.CodeProviderUnavailable, "embedding provider circuit open",
			moserr.FieldProvider(b.Name()))
	}
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}

// HealthMetrics reports the wrapped provider's health, marked unavailable
// while the breaker is open.
func (b *BreakerEmbedder) HealthMetrics() health.Metrics {
	var m health.Metrics
	if hr, ok := b.Embedder.(HealthReporter); ok {
		m = hr.HealthMetrics()
	} else {
		m.Available = true
	}
	if b.cb.State() == gobreaker.StateOpen {
		m.Available = false
	}
	return m
}
