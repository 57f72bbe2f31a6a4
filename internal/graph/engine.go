// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package graph implements node and edge operations over a store.Store:
// upsert-by-slug node writes, plain edge inserts and bounded breadth-first
// traversal.
package graph

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arc-dev/mos/internal/store"
)

// DefaultListLimit is the page size ListNodes uses when none is given.
const DefaultListLimit = 50

const tracerName = "github.com/arc-dev/mos/internal/graph"

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for created_at and updated_at.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for engine spans.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// Engine is the graph API used by search, sync, summaries and the HTTP layer.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewEngine returns an Engine backed by s.
func NewEngine(s store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// CreateNode upserts by (user_id, slug). An existing node keeps its id and
// created_at; title, type, content, summary and metadata are overwritten.
func (e *Engine) CreateNode(ctx context.Context, in CreateNodeInput) (*store.Node, error) {
	ctx, span := e.tracer.Start(ctx, "graph.CreateNode",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("node.slug", in.Slug),
			attribute.String("node.type", string(in.Type)),
		),
	)
	defer span.End()

	if err := validateInput(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	metadata := maps.Clone(in.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := e.now().UTC()
	node, err := e.store.Nodes().UpsertNode(ctx, &store.Node{
		UserID:    in.UserID,
		Type:      in.Type,
		Slug:      in.Slug,
		Title:     in.Title,
		Content:   in.Content,
		Summary:   in.Summary,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("node.id", node.ID))
	return node, nil
}

// UpdateNode applies a partial update and refreshes updated_at. A missing
// node is reported as a not-found error.
func (e *Engine) UpdateNode(ctx context.Context, id string, upd store.NodeUpdate) (*store.Node, error) {
	return e.store.Nodes().UpdateNode(ctx, id, upd, e.now().UTC())
}

// DeleteNode removes the node and, through the store, every edge touching it.
func (e *Engine) DeleteNode(ctx context.Context, id string) error {
	return e.store.Nodes().DeleteNode(ctx, id)
}

// GetNode returns nil, nil when the node does not exist.
func (e *Engine) GetNode(ctx context.Context, id string) (*store.Node, error) {
	node, err := e.store.Nodes().GetNode(ctx, id)
	if store.IsNotFound(err) {
		return nil, nil
	}
	return node, err
}

// GetNodeBySlug returns nil, nil when no node of userID has slug.
func (e *Engine) GetNodeBySlug(ctx context.Context, userID, slug string) (*store.Node, error) {
	node, err := e.store.Nodes().GetNodeBySlug(ctx, userID, slug)
	if store.IsNotFound(err) {
		return nil, nil
	}
	return node, err
}

// ListNodes pages through the user's nodes, most recently updated first.
// The result is never nil.
func (e *Engine) ListNodes(ctx context.Context, userID string, opts ListOptions) ([]*store.Node, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	nodes, err := e.store.Nodes().ListNodes(ctx, store.NodeQuery{
		UserID: userID,
		Type:   opts.Type,
		Search: opts.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []*store.Node{}
	}
	return nodes, nil
}

// CreateEdge inserts a new edge. Edges are never deduplicated.
func (e *Engine) CreateEdge(ctx context.Context, in CreateEdgeInput) (*store.Edge, error) {
	ctx, span := e.tracer.Start(ctx, "graph.CreateEdge",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("edge.type", string(in.EdgeType)),
		),
	)
	defer span.End()

	if err := validateInput(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	weight := 1.0
	if in.Weight != nil {
		weight = *in.Weight
	}
	metadata := maps.Clone(in.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	edge, err := e.store.Edges().CreateEdge(ctx, &store.Edge{
		UserID:      in.UserID,
		SourceID:    in.SourceID,
		TargetID:    in.TargetID,
		EdgeType:    in.EdgeType,
		CustomLabel: in.CustomLabel,
		Weight:      weight,
		Summary:     in.Summary,
		Metadata:    metadata,
		CreatedAt:   e.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	return edge, nil
}

// DeleteEdge removes an edge. Unknown ids are ignored.
func (e *Engine) DeleteEdge(ctx context.Context, id string) error {
	return e.store.Edges().DeleteEdge(ctx, id)
}
