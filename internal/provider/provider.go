// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package provider defines the embedding and chat provider contracts the
// rest of mos depends on. Concrete SDK-backed implementations live in the
// anthropic, openai and google subpackages.
package provider

import (
	"context"
	"errors"

	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string
	// Model returns the embedding model stored alongside each vector.
	Model() string
	// Dimensions returns the length of every vector Embed produces.
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer answers a single system + user prompt with text.
// A response without any text block is reported as
// CodeProviderResponseInvalid.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// HealthReporter is implemented by providers that track their own health.
type HealthReporter interface {
	HealthMetrics() health.Metrics
}

// UpstreamError classifies a failed provider call. Deadline expiry maps to
// CodeProviderTimeout, everything else to CodeProviderUpstreamFailure.
func UpstreamError(name string, err error, msg string) error {
	code := moserr.CodeProviderUpstreamFailure
	if errors.Is(err, context.DeadlineExceeded) {
		code = moserr.CodeProviderTimeout
	}
	return moserr.Wrap(err, code, name+": "+msg, moserr.FieldProvider(name))
}

// Float32s converts an SDK float64 embedding into the float32 form stored
// by the vector index.
func Float32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
