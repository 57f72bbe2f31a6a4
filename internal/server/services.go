// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"log/slog"

	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/suggest"
	"github.com/arc-dev/mos/internal/summarize"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// Services holds the engines route handlers call into. Only Graph is
// required; routes backed by a nil service answer 501.
type Services struct {
	Graph      *graph.Engine
	Search     *search.Engine
	Summarizer *summarize.Summarizer
	Suggest    *suggest.Ranker
	Sync       *sds.Connector
	Metrics    *metrics.Collector
	// Health maps a provider name to its health source for /health.
	Health map[string]provider.HealthReporter
	Logger *slog.Logger
}

func (s *Services) validate() error {
	if s == nil || s.Graph == nil {
		return moserr.New(moserr.CodeServerConfigInvalid, "graph engine is required")
	}
	return nil
}

func (s *Services) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func unavailable(what string) error {
	return moserr.New(moserr.CodeServerNotImplemented, what+" is not configured")
}
