// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arc-dev/mos/pkg/health"
)

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status    string                    `json:"status" example:"ok" doc:"ok, or degraded when a provider is cooling down"`
	Providers map[string]health.Metrics `json:"providers,omitempty" doc:"Per-provider health"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

func (s *Server) registerHealthRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		body := HealthBody{Status: "ok"}
		if len(s.svc.Health) > 0 {
			body.Providers = make(map[string]health.Metrics, len(s.svc.Health))
			for name, reporter := range s.svc.Health {
				m := reporter.HealthMetrics()
				body.Providers[name] = m
				if !m.Available {
					body.Status = "degraded"
				}
			}
		}
		return &HealthResponse{Body: body}, nil
	})
}
