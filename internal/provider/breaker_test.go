// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/provider"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

type scriptedEmbedder struct {
	calls int
	err   error
}

func (s *scriptedEmbedder) Name() string    { return "scripted" }
func (s *scriptedEmbedder) Model() string   { return "scripted-1" }
func (s *scriptedEmbedder) Dimensions() int { return 2 }

func (s *scriptedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func testBreakerConfig() provider.BreakerConfig {
	return provider.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
}

func TestBreakerEmbedder_PassesThrough(t *testing.T) {
	inner := &scriptedEmbedder{}
	b := provider.NewBreakerEmbedder(inner, testBreakerConfig(), nil)

	vec, err := b.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, "scripted", b.Name())
	assert.Equal(t, "scripted-1", b.Model())
	assert.Equal(t, 2, b.Dimensions())
	assert.Equal(t, "closed", b.State())
}

func TestBreakerEmbedder_OpensAfterFailures(t *testing.T) {
	upstream := moserr.New(moserr.CodeProviderUpstreamFailure, "down")
	inner := &scriptedEmbedder{err: upstream}
	b := provider.NewBreakerEmbedder(inner, testBreakerConfig(), nil)

	for i := 0; i < 2; i++ {
		_, err := b.Embed(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, moserr.IsUpstreamFailure(err))
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderUnavailable))
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the provider")
}

func TestBreakerEmbedder_CanceledCallsDoNotTrip(t *testing.T) {
	inner := &scriptedEmbedder{err: context.Canceled}
	b := provider.NewBreakerEmbedder(inner, testBreakerConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.Embed(context.Background(), "q")
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, 5, inner.calls)
}

func TestBreakerEmbedder_HealthMetrics(t *testing.T) {
	inner := &scriptedEmbedder{err: moserr.New(moserr.CodeProviderUpstreamFailure, "down")}
	b := provider.NewBreakerEmbedder(inner, testBreakerConfig(), nil)
	assert.True(t, b.HealthMetrics().Available)

	for i := 0; i < 2; i++ {
		_, _ = b.Embed(context.Background(), "q")
	}
	assert.False(t, b.HealthMetrics().Available)
}
