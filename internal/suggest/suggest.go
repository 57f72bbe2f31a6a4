// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package suggest ranks concepts the user has not practiced recently.
package suggest

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/arc-dev/mos/internal/store"
)

const (
	// DefaultStaleAfter is how long a practiced concept stays fresh.
	DefaultStaleAfter = 14 * 24 * time.Hour
	// DefaultLimit caps the number of suggestions.
	DefaultLimit = 10
)

// Suggestion is one concept worth practicing.
type Suggestion struct {
	ConceptID         string     `json:"concept_id"`
	Title             string     `json:"title"`
	Slug              string     `json:"slug"`
	LastPracticed     *time.Time `json:"last_practiced"`
	DaysSincePractice *int       `json:"days_since_practice"`
	IsStale           bool       `json:"is_stale"`
	FromSDS           bool       `json:"from_sds"`
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.now = now }
}

// WithStaleAfter sets the freshness window. Non-positive values are ignored.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Ranker) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithLimit caps the result size. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// Ranker builds practice suggestions from concept nodes and practiced_at
// edges.
type Ranker struct {
	store      store.Store
	now        func() time.Time
	staleAfter time.Duration
	limit      int
	logger     *slog.Logger
}

// NewRanker returns a Ranker reading from s.
func NewRanker(s store.Store, opts ...Option) *Ranker {
	r := &Ranker{
		store:      s,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		limit:      DefaultLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Suggest returns the stale concepts of userID: never practiced first, then
// the longest unpracticed. The result is never nil.
func (r *Ranker) Suggest(ctx context.Context, userID string) ([]Suggestion, error) {
	concepts, err := r.store.Nodes().ListNodes(ctx, store.NodeQuery{
		UserID:    userID,
		Type:      store.NodeTypeConcept,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	if len(concepts) == 0 {
		return []Suggestion{}, nil
	}

	practiced, err := r.store.Edges().ListEdges(ctx, store.EdgeQuery{
		UserID:   userID,
		EdgeType: store.EdgeTypePracticedAt,
	})
	if err != nil {
		return nil, err
	}

	out := Rank(concepts, practiced, r.now(), r.staleAfter, r.limit)
	r.logger.DebugContext(ctx, "practice suggestions ranked",
		slog.String("user_id", userID),
		slog.Int("concepts", len(concepts)),
		slog.Int("suggestions", len(out)),
	)
	return out, nil
}

// Rank is the pure part of Suggest. concepts keep their relative order
// among never-practiced entries.
func Rank(concepts []*store.Node, practiced []*store.Edge, now time.Time, staleAfter time.Duration, limit int) []Suggestion {
	last := make(map[string]time.Time)
	for _, e := range practiced {
		if e.EdgeType != store.EdgeTypePracticedAt {
			continue
		}
		if prev, ok := last[e.TargetID]; !ok || e.CreatedAt.After(prev) {
			last[e.TargetID] = e.CreatedAt
		}
	}

	cutoff := now.Add(-staleAfter)
	out := make([]Suggestion, 0)
	for _, c := range concepts {
		s := Suggestion{
			ConceptID: c.ID,
			Title:     c.Title,
			Slug:      c.Slug,
			FromSDS:   c.Metadata["source"] == "sds",
		}
		if at, ok := last[c.ID]; ok {
			days := int(now.Sub(at) / (24 * time.Hour))
			s.LastPracticed = &at
			s.DaysSincePractice = &days
			s.IsStale = at.Before(cutoff)
		} else {
			s.IsStale = true
		}
		if s.IsStale {
			out = append(out, s)
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		switch {
		case a.DaysSincePractice == nil && b.DaysSincePractice == nil:
			return 0
		case a.DaysSincePractice == nil:
			return -1
		case b.DaysSincePractice == nil:
			return 1
		}
		return cmp.Compare(*b.DaysSincePractice, *a.DaysSincePractice)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
