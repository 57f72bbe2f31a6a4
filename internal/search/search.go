// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package search ranks a user's nodes against a text query by fusing
// vector similarity with full-text relevance.
package search

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

const (
	DefaultLimit               = 20
	DefaultSimilarityThreshold = 0.5

	VectorWeight  = 0.7
	KeywordWeight = 0.3
)

const tracerName = "github.com/arc-dev/mos/internal/search"

// Source says which signal produced a Result.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
	SourceHybrid  Source = "hybrid"
)

// Result is one ranked node.
type Result struct {
	Node   *store.Node `json:"node"`
	Score  float64     `json:"score"`
	Source Source      `json:"source"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedder enables the vector half of hybrid search. Without one,
// HybridSearch is keyword-only.
func WithEmbedder(e provider.Embedder) Option {
	return func(s *Engine) { s.embedder = e }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Engine) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Engine) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Engine) { s.tracer = t }
}

// WithThreshold sets the minimum cosine similarity for vector hits.
func WithThreshold(threshold float64) Option {
	return func(s *Engine) { s.threshold = threshold }
}

// WithDefaultLimit sets the limit used when callers pass zero.
func WithDefaultLimit(limit int) Option {
	return func(s *Engine) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// Engine runs vector, keyword and hybrid searches over a store.
type Engine struct {
	store        store.Store
	embedder     provider.Embedder
	metrics      *metrics.Collector
	logger       *slog.Logger
	tracer       trace.Tracer
	threshold    float64
	defaultLimit int
}

func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
		threshold:    DefaultSimilarityThreshold,
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) limit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	return limit
}

// VectorSearch returns the user's nodes whose similarity to embedding
// exceeds the threshold, most similar first, scored by similarity.
func (e *Engine) VectorSearch(ctx context.Context, embedding []float32, userID string, limit int) ([]Result, error) {
	limit = e.limit(limit)
	matches, err := e.store.Vectors().NearestNodes(ctx, userID, embedding, e.threshold, limit)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.NodeID
	}
	nodes, err := e.store.Nodes().GetNodes(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if n, ok := byID[m.NodeID]; ok {
			results = append(results, Result{Node: n, Score: m.Similarity, Source: SourceVector})
		}
	}
	return results, nil
}

// KeywordSearch runs a full-text query. Scores are synthetic and only
// encode rank: the i-th hit scores 1 - i/limit.
func (e *Engine) KeywordSearch(ctx context.Context, query, userID string, limit int) ([]Result, error) {
	limit = e.limit(limit)
	nodes, err := e.store.Nodes().SearchNodes(ctx, userID, query, limit)
	if err != nil {
		return nil, moserr.Wrap(err, moserr.CodeSearchKeywordFailure, "keyword search", moserr.FieldUserID(userID))
	}

	results := make([]Result, len(nodes))
	for i, n := range nodes {
		results[i] = Result{
			Node:   n,
			Score:  1 - float64(i)/float64(max(limit, 1)),
			Source: SourceKeyword,
		}
	}
	return results, nil
}

// MergeResults fuses the two lists by node id with a 0.7/0.3 weighting.
// A node present in both with positive scores is SourceHybrid. The output
// is sorted by combined score, ties keeping first-seen order, and cut to
// limit.
func MergeResults(vector, keyword []Result, limit int) []Result {
	type entry struct {
		node         *store.Node
		vectorScore  float64
		keywordScore float64
	}

	var order []string
	entries := make(map[string]*entry)
	for _, r := range vector {
		if _, ok := entries[r.Node.ID]; !ok {
			order = append(order, r.Node.ID)
		}
		entries[r.Node.ID] = &entry{node: r.Node, vectorScore: r.Score}
	}
	for _, r := range keyword {
		if existing, ok := entries[r.Node.ID]; ok {
			existing.keywordScore = r.Score
			continue
		}
		order = append(order, r.Node.ID)
		entries[r.Node.ID] = &entry{node: r.Node, keywordScore: r.Score}
	}

	merged := make([]Result, 0, len(order))
	for _, id := range order {
		en := entries[id]
		source := SourceKeyword
		switch {
		case en.vectorScore > 0 && en.keywordScore > 0:
			source = SourceHybrid
		case en.vectorScore > 0:
			source = SourceVector
		}
		merged = append(merged, Result{
			Node:   en.node,
			Score:  en.vectorScore*VectorWeight + en.keywordScore*KeywordWeight,
			Source: source,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// HybridSearch embeds query and merges vector and keyword hits. The two
// legs run concurrently. A failure anywhere on the vector side degrades to
// keyword-only results; keyword errors are returned.
func (e *Engine) HybridSearch(ctx context.Context, query, userID string, limit int) ([]Result, error) {
	limit = e.limit(limit)
	ctx, span := e.tracer.Start(ctx, "search.HybridSearch",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	var vector, keyword []Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e.embedder == nil {
			e.logger.DebugContext(gctx, "no embedding provider configured, keyword search only")
			return nil
		}
		hits, err := e.vectorForQuery(gctx, query, userID, limit)
		if err != nil {
			if gctx.Err() != nil {
				// Cancelled by the caller or by a failed keyword leg; the
				// provider itself did not fail.
				return nil
			}
			e.logger.WarnContext(gctx, "vector search unavailable, using keyword results only",
				slog.String("user_id", userID),
				slog.String("provider", e.embedder.Name()),
				slog.Any("error", err),
			)
			e.metrics.ObserveFallback(e.embedder.Name())
			span.SetAttributes(attribute.Bool("search.fallback", true))
			return nil
		}
		vector = hits
		return nil
	})
	g.Go(func() error {
		var err error
		keyword, err = e.KeywordSearch(gctx, query, userID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "keyword search failed")
		return nil, err
	}

	results := MergeResults(vector, keyword, limit)
	e.metrics.ObserveSearch(string(SourceHybrid))
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

func (e *Engine) vectorForQuery(ctx context.Context, query, userID string, limit int) ([]Result, error) {
	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.VectorSearch(ctx, embedding, userID, limit)
}

// SearchNodes is keyword-only search.
func (e *Engine) SearchNodes(ctx context.Context, query, userID string, limit int) ([]Result, error) {
	results, err := e.KeywordSearch(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveSearch(string(SourceKeyword))
	return results, nil
}
