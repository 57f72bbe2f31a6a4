// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/suggest"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func (s *Server) registerKnowledgeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Search nodes",
		Tags:        []string{"knowledge"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "ask",
		Method:      http.MethodPost,
		Path:        "/api/v1/ask",
		Summary:     "Answer what the graph knows about a topic",
		Tags:        []string{"knowledge"},
	}, s.handleAsk)

	huma.Register(s.api, huma.Operation{
		OperationID: "crib-sheet",
		Method:      http.MethodGet,
		Path:        "/api/v1/crib/{nodeId}",
		Summary:     "Generate a crib sheet for a node",
		Tags:        []string{"knowledge"},
	}, s.handleCribSheet)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/suggestions",
		Summary:     "Concepts due for practice",
		Tags:        []string{"knowledge"},
	}, s.handleSuggestions)

	huma.Register(s.api, huma.Operation{
		OperationID: "sync-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Sync a design session into the graph",
		Tags:        []string{"sync"},
	}, s.handleSync)
}

// SearchHit is one search result as served over HTTP.
type SearchHit struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Type    string        `json:"type"`
	Snippet string        `json:"snippet"`
	Score   float64       `json:"score"`
	Source  search.Source `json:"source"`
}

type searchInput struct {
	Body struct {
		Query string `json:"query" minLength:"1"`
		Mode  string `json:"mode,omitempty" enum:"hybrid,keyword" default:"hybrid"`
		Limit int    `json:"limit,omitempty" minimum:"0" maximum:"100"`
	}
}

type searchOutput struct {
	Body struct {
		Results []SearchHit `json:"results"`
	}
}

func (s *Server) handleSearch(ctx context.Context, in *searchInput) (*searchOutput, error) {
	if s.svc.Search == nil {
		return nil, s.apiError("search", unavailable("search"))
	}

	userID := UserFromContext(ctx)
	var (
		results []search.Result
		err     error
	)
	if in.Body.Mode == "keyword" {
		results, err = s.svc.Search.SearchNodes(ctx, in.Body.Query, userID, in.Body.Limit)
	} else {
		results, err = s.svc.Search.HybridSearch(ctx, in.Body.Query, userID, in.Body.Limit)
	}
	if err != nil {
		return nil, s.apiError("search", err)
	}

	out := &searchOutput{}
	out.Body.Results = make([]SearchHit, 0, len(results))
	for _, r := range results {
		snippet := r.Node.Summary
		if snippet == "" {
			snippet = r.Node.Content
		}
		out.Body.Results = append(out.Body.Results, SearchHit{
			ID:      r.Node.ID,
			Title:   r.Node.Title,
			Type:    string(r.Node.Type),
			Snippet: snippet,
			Score:   r.Score,
			Source:  r.Source,
		})
	}
	return out, nil
}

type askInput struct {
	Body struct {
		Question string `json:"question" minLength:"1"`
	}
}

type askOutput struct {
	Body struct {
		Answer string `json:"answer"`
	}
}

func (s *Server) handleAsk(ctx context.Context, in *askInput) (*askOutput, error) {
	if s.svc.Summarizer == nil {
		return nil, s.apiError("ask", unavailable("chat provider"))
	}
	answer, err := s.svc.Summarizer.WhatDoIKnow(ctx, UserFromContext(ctx), in.Body.Question)
	if err != nil {
		return nil, s.apiError("ask", err)
	}
	out := &askOutput{}
	out.Body.Answer = answer
	return out, nil
}

type cribInput struct {
	NodeID string `path:"nodeId"`
}

type cribOutput struct {
	Body struct {
		Content string `json:"content"`
	}
}

func (s *Server) handleCribSheet(ctx context.Context, in *cribInput) (*cribOutput, error) {
	if s.svc.Summarizer == nil {
		return nil, s.apiError("crib sheet", unavailable("chat provider"))
	}
	content, err := s.svc.Summarizer.GenerateCribSheet(ctx, UserFromContext(ctx), in.NodeID)
	if err != nil {
		return nil, s.apiError("crib sheet", err)
	}
	out := &cribOutput{}
	out.Body.Content = content
	return out, nil
}

type suggestionsOutput struct {
	Body struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
}

func (s *Server) handleSuggestions(ctx context.Context, _ *struct{}) (*suggestionsOutput, error) {
	if s.svc.Suggest == nil {
		return nil, s.apiError("suggestions", unavailable("suggestions"))
	}
	suggestions, err := s.svc.Suggest.Suggest(ctx, UserFromContext(ctx))
	if err != nil {
		return nil, s.apiError("suggestions", err)
	}
	out := &suggestionsOutput{}
	out.Body.Suggestions = suggestions
	return out, nil
}

// syncSession mirrors sds.Session with optional fields; the connector
// does its own validation.
type syncSession struct {
	ID           string     `json:"id" minLength:"1"`
	UserID       string     `json:"user_id,omitempty" doc:"Defaults to the X-User-ID caller"`
	PromptID     string     `json:"prompt_id,omitempty"`
	Mode         string     `json:"mode,omitempty"`
	Status       string     `json:"status,omitempty"`
	StartedAt    time.Time  `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	TimeSpentSec *int       `json:"time_spent_sec,omitempty"`
}

type syncEvaluation struct {
	ID               string   `json:"id" minLength:"1"`
	OverallScore     float64  `json:"overall_score,omitempty"`
	ComponentScore   float64  `json:"component_score,omitempty"`
	ScalingScore     float64  `json:"scaling_score,omitempty"`
	ReliabilityScore float64  `json:"reliability_score,omitempty"`
	TradeoffScore    float64  `json:"tradeoff_score,omitempty"`
	ComponentsFound  []string `json:"components_found,omitempty"`
}

type syncInput struct {
	Body struct {
		Session    syncSession    `json:"session"`
		Evaluation syncEvaluation `json:"evaluation"`
	}
}

type syncOutput struct {
	Body *sds.Result
}

// handleSync fills an empty session user from the header and refuses to
// write into another user's graph.
func (s *Server) handleSync(ctx context.Context, in *syncInput) (*syncOutput, error) {
	if s.svc.Sync == nil {
		return nil, s.apiError("sync", unavailable("sync"))
	}

	userID := UserFromContext(ctx)
	session := sds.Session(in.Body.Session)
	switch session.UserID {
	case "":
		session.UserID = userID
	case userID:
	default:
		return nil, s.apiError("sync", moserr.New(moserr.CodeServerAuthForbidden,
			"session belongs to another user", moserr.FieldSessionID(session.ID)))
	}

	result, err := s.svc.Sync.Sync(ctx, session, sds.Evaluation(in.Body.Evaluation))
	if err != nil {
		return nil, s.apiError("sync", err)
	}
	return &syncOutput{Body: result}, nil
}
