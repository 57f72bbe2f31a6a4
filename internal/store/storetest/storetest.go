// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package storetest holds the behavioural contract every store backend must
// satisfy. Backend test files call Run with a constructor.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// OpenFunc returns a fresh, empty store for one subtest.
type OpenFunc func(t *testing.T) store.Store

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// MustNode upserts a node and fails the test on error.
func MustNode(t *testing.T, s store.Store, userID string, typ store.NodeType, slug, title string, at time.Time) *store.Node {
	t.Helper()
	n, err := s.Nodes().UpsertNode(context.Background(), &store.Node{
		UserID: userID, Type: typ, Slug: slug, Title: title,
		CreatedAt: at, UpdatedAt: at,
	})
	require.NoError(t, err)
	return n
}

// MustEdge inserts an edge and fails the test on error.
func MustEdge(t *testing.T, s store.Store, userID, source, target string, typ store.EdgeType, at time.Time) *store.Edge {
	t.Helper()
	e, err := s.Edges().CreateEdge(context.Background(), &store.Edge{
		UserID: userID, SourceID: source, TargetID: target, EdgeType: typ,
		Weight: 1.0, CreatedAt: at,
	})
	require.NoError(t, err)
	return e
}

// Run executes the full contract against the backend produced by open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("NodeUpsertByUserAndSlug", func(t *testing.T) { testNodeUpsert(t, open(t)) })
	t.Run("NodeUpdate", func(t *testing.T) { testNodeUpdate(t, open(t)) })
	t.Run("NodeLookups", func(t *testing.T) { testNodeLookups(t, open(t)) })
	t.Run("NodeList", func(t *testing.T) { testNodeList(t, open(t)) })
	t.Run("NodeSearch", func(t *testing.T) { testNodeSearch(t, open(t)) })
	t.Run("EdgeInvariants", func(t *testing.T) { testEdgeInvariants(t, open(t)) })
	t.Run("EdgeQueries", func(t *testing.T) { testEdgeQueries(t, open(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, open(t)) })
	t.Run("Vectors", func(t *testing.T) { testVectors(t, open(t)) })
	t.Run("Ledger", func(t *testing.T) { testLedger(t, open(t)) })
}

func testNodeUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()

	first, err := s.Nodes().UpsertNode(ctx, &store.Node{
		UserID: "u1", Type: store.NodeTypeConcept, Slug: "caching", Title: "Caching",
		Metadata: map[string]any{"source": "manual"}, CreatedAt: base, UpdatedAt: base,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, "manual", first.Metadata["source"])

	later := base.Add(time.Hour)
	second, err := s.Nodes().UpsertNode(ctx, &store.Node{
		UserID: "u1", Type: store.NodeTypePattern, Slug: "caching", Title: "Caching Strategies",
		Content: "read-through, write-back", CreatedAt: later, UpdatedAt: later,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Caching Strategies", second.Title)
	assert.Equal(t, store.NodeTypePattern, second.Type)
	assert.Equal(t, "read-through, write-back", second.Content)
	assert.True(t, second.CreatedAt.Equal(base), "created_at is kept on conflict")
	assert.True(t, second.UpdatedAt.Equal(later))
	assert.NotNil(t, second.Metadata)
	assert.Empty(t, second.Metadata)

	nodes, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	other := MustNode(t, s, "u2", store.NodeTypeConcept, "caching", "Caching", base)
	assert.NotEqual(t, first.ID, other.ID, "slugs are unique per user only")

	_, err = s.Nodes().UpsertNode(ctx, &store.Node{UserID: "u1", Type: "place", Slug: "x", Title: "X", UpdatedAt: base})
	require.Error(t, err)
	assert.True(t, moserr.IsInvalidInput(err))
}

func testNodeUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	n := MustNode(t, s, "u1", store.NodeTypeNote, "draft", "Draft", base)

	later := base.Add(2 * time.Hour)
	updated, err := s.Nodes().UpdateNode(ctx, n.ID, store.NodeUpdate{
		Summary:  strPtr("short"),
		Metadata: map[string]any{"k": "v"},
	}, later)
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "short", updated.Summary)
	assert.Equal(t, "v", updated.Metadata["k"])
	assert.True(t, updated.UpdatedAt.Equal(later))
	assert.Equal(t, "draft", updated.Slug)

	cleared, err := s.Nodes().UpdateNode(ctx, n.ID, store.NodeUpdate{Summary: strPtr("")}, later.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, cleared.Summary)
	assert.Equal(t, "v", cleared.Metadata["k"], "nil metadata leaves the map unchanged")

	_, err = s.Nodes().UpdateNode(ctx, "missing", store.NodeUpdate{Title: strPtr("x")}, later)
	require.Error(t, err)
	assert.True(t, moserr.IsNotFound(err))

	bad := store.NodeType("place")
	_, err = s.Nodes().UpdateNode(ctx, n.ID, store.NodeUpdate{Type: &bad}, later)
	require.Error(t, err)
	assert.True(t, moserr.IsInvalidInput(err))
}

func testNodeLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A", base)
	b := MustNode(t, s, "u1", store.NodeTypeConcept, "b", "B", base)

	got, err := s.Nodes().GetNode(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	bySlug, err := s.Nodes().GetNodeBySlug(ctx, "u1", "b")
	require.NoError(t, err)
	assert.Equal(t, b.ID, bySlug.ID)

	_, err = s.Nodes().GetNode(ctx, "missing")
	assert.True(t, store.IsNotFound(err))

	_, err = s.Nodes().GetNodeBySlug(ctx, "u2", "a")
	assert.True(t, store.IsNotFound(err))

	batch, err := s.Nodes().GetNodes(ctx, []string{a.ID, "missing", b.ID})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	empty, err := s.Nodes().GetNodes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testNodeList(t *testing.T, s store.Store) {
	ctx := context.Background()
	MustNode(t, s, "u1", store.NodeTypeConcept, "oldest", "Load Balancing", base)
	mid, err := s.Nodes().UpsertNode(ctx, &store.Node{
		UserID: "u1", Type: store.NodeTypeNote, Slug: "mid", Title: "Interview notes",
		Content: "Discussed LOAD shedding", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	MustNode(t, s, "u1", store.NodeTypeConcept, "newest", "Sharding", base.Add(2*time.Hour))
	_, err = s.Nodes().UpsertNode(ctx, &store.Node{
		UserID: "u1", Type: store.NodeTypeNote, Slug: "summary-only", Title: "Other",
		Summary: "load everywhere", CreatedAt: base, UpdatedAt: base,
	})
	require.NoError(t, err)
	MustNode(t, s, "u2", store.NodeTypeConcept, "foreign", "Load Testing", base)

	all, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "newest", all[0].Slug, "ordered by updated_at descending")

	concepts, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1", Type: store.NodeTypeConcept})
	require.NoError(t, err)
	assert.Len(t, concepts, 2)

	search, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1", Search: "load"})
	require.NoError(t, err)
	require.Len(t, search, 2, "matches title or content, not summary")
	assert.Equal(t, mid.ID, search[0].ID)

	paged, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "mid", paged[0].Slug)

	asc, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "u1", Type: store.NodeTypeConcept, Ascending: true})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, "oldest", asc[0].Slug)

	none, err := s.Nodes().ListNodes(ctx, store.NodeQuery{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testNodeSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	inContent, err := s.Nodes().UpsertNode(ctx, &store.Node{
		UserID: "u1", Type: store.NodeTypeNote, Slug: "notes", Title: "Weekly notes",
		Content: "we talked about consistent hashing", CreatedAt: base, UpdatedAt: base,
	})
	require.NoError(t, err)
	inTitle := MustNode(t, s, "u1", store.NodeTypeConcept, "consistent-hashing", "Consistent Hashing", base)
	MustNode(t, s, "u1", store.NodeTypeConcept, "hashing", "Hashing", base)
	MustNode(t, s, "u2", store.NodeTypeConcept, "consistent-hashing", "Consistent Hashing", base)

	hits, err := s.Nodes().SearchNodes(ctx, "u1", "consistent hashing", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2, "every term must match")
	assert.Equal(t, inTitle.ID, hits[0].ID, "title hits rank first")
	assert.Equal(t, inContent.ID, hits[1].ID)

	limited, err := s.Nodes().SearchNodes(ctx, "u1", "hashing", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	quoted, err := s.Nodes().SearchNodes(ctx, "u1", `"hashing" (*`, 10)
	require.NoError(t, err, "query syntax characters are treated as text")
	assert.NotEmpty(t, quoted)

	empty, err := s.Nodes().SearchNodes(ctx, "u1", "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testEdgeInvariants(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A", base)
	b := MustNode(t, s, "u1", store.NodeTypeConcept, "b", "B", base)

	e, err := s.Edges().CreateEdge(ctx, &store.Edge{
		UserID: "u1", SourceID: a.ID, TargetID: b.ID, EdgeType: store.EdgeTypeDependsOn,
		Weight: 0.25, CreatedAt: base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Nil(t, e.CustomLabel)
	assert.NotNil(t, e.Metadata)
	assert.InDelta(t, 0.25, e.Weight, 1e-9)

	dup := MustEdge(t, s, "u1", a.ID, b.ID, store.EdgeTypeDependsOn, base)
	assert.NotEqual(t, e.ID, dup.ID, "edges are not deduplicated")

	custom, err := s.Edges().CreateEdge(ctx, &store.Edge{
		UserID: "u1", SourceID: b.ID, TargetID: a.ID, EdgeType: store.EdgeTypeCustom,
		CustomLabel: strPtr("inspired"), Weight: 1, CreatedAt: base,
	})
	require.NoError(t, err)
	require.NotNil(t, custom.CustomLabel)
	assert.Equal(t, "inspired", *custom.CustomLabel)

	invalid := []*store.Edge{
		{UserID: "u1", SourceID: a.ID, TargetID: a.ID, EdgeType: store.EdgeTypeRelatedTo, CreatedAt: base},
		{UserID: "u1", SourceID: a.ID, TargetID: b.ID, EdgeType: store.EdgeTypeCustom, CreatedAt: base},
		{UserID: "u1", SourceID: a.ID, TargetID: b.ID, EdgeType: store.EdgeTypeRead, CustomLabel: strPtr("x"), CreatedAt: base},
		{UserID: "u1", SourceID: a.ID, TargetID: b.ID, EdgeType: "likes", CreatedAt: base},
		{UserID: "u1", SourceID: a.ID, TargetID: "missing", EdgeType: store.EdgeTypeRead, CreatedAt: base},
	}
	for _, bad := range invalid {
		_, err := s.Edges().CreateEdge(ctx, bad)
		require.Error(t, err)
		assert.True(t, moserr.IsInvalidInput(err), "edge %+v: %v", bad, err)
	}

	got, err := s.Edges().GetEdge(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EdgeTypeDependsOn, got.EdgeType)

	_, err = s.Edges().GetEdge(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
}

func testEdgeQueries(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A", base)
	b := MustNode(t, s, "u1", store.NodeTypeConcept, "b", "B", base)
	c := MustNode(t, s, "u1", store.NodeTypeConcept, "c", "C", base)
	ab := MustEdge(t, s, "u1", a.ID, b.ID, store.EdgeTypeRelatedTo, base)
	bc := MustEdge(t, s, "u1", b.ID, c.ID, store.EdgeTypePracticedAt, base.Add(time.Minute))
	ca := MustEdge(t, s, "u1", c.ID, a.ID, store.EdgeTypePracticedAt, base.Add(2*time.Minute))

	from, err := s.Edges().EdgesFrom(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{ab.ID, bc.ID}, edgeIDs(from))

	to, err := s.Edges().EdgesTo(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{ca.ID}, edgeIDs(to))

	none, err := s.Edges().EdgesFrom(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	practiced, err := s.Edges().ListEdges(ctx, store.EdgeQuery{UserID: "u1", EdgeType: store.EdgeTypePracticedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{bc.ID, ca.ID}, edgeIDs(practiced))

	require.NoError(t, s.Edges().DeleteEdge(ctx, ab.ID))
	require.NoError(t, s.Edges().DeleteEdge(ctx, ab.ID), "delete is idempotent")
	from, err = s.Edges().EdgesFrom(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Empty(t, from)
}

func testDeleteCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A", base)
	b := MustNode(t, s, "u1", store.NodeTypeConcept, "b", "B", base)
	c := MustNode(t, s, "u1", store.NodeTypeConcept, "c", "C", base)
	MustEdge(t, s, "u1", a.ID, b.ID, store.EdgeTypeRelatedTo, base)
	MustEdge(t, s, "u1", c.ID, a.ID, store.EdgeTypeRelatedTo, base)
	bc := MustEdge(t, s, "u1", b.ID, c.ID, store.EdgeTypeRelatedTo, base)
	require.NoError(t, s.Vectors().PutEmbedding(ctx, &store.Embedding{
		NodeID: a.ID, UserID: "u1", Model: "m", Provider: "p", ContentHash: "h",
		Vector: []float32{1, 0, 0}, UpdatedAt: base,
	}))

	require.NoError(t, s.Nodes().DeleteNode(ctx, a.ID))
	require.NoError(t, s.Nodes().DeleteNode(ctx, a.ID), "delete is idempotent")

	_, err := s.Nodes().GetNode(ctx, a.ID)
	assert.True(t, store.IsNotFound(err))

	remaining, err := s.Edges().ListEdges(ctx, store.EdgeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{bc.ID}, edgeIDs(remaining))

	_, err = s.Vectors().GetEmbedding(ctx, a.ID, "m")
	assert.True(t, store.IsNotFound(err))

	again := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A again", base)
	assert.NotEqual(t, a.ID, again.ID, "slug is free after delete")
}

func testVectors(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := MustNode(t, s, "u1", store.NodeTypeConcept, "a", "A", base)
	b := MustNode(t, s, "u1", store.NodeTypeConcept, "b", "B", base)
	c := MustNode(t, s, "u1", store.NodeTypeConcept, "c", "C", base)
	foreign := MustNode(t, s, "u2", store.NodeTypeConcept, "a", "A", base)

	put := func(n *store.Node, vec []float32) {
		require.NoError(t, s.Vectors().PutEmbedding(ctx, &store.Embedding{
			NodeID: n.ID, UserID: n.UserID, Model: "m", Provider: "p",
			ContentHash: "hash-" + n.Slug, Vector: vec, UpdatedAt: base,
		}))
	}
	put(a, []float32{2, 0, 0}) // similarity 1.0
	put(b, []float32{1, 1, 0}) // ~0.707
	put(c, []float32{0, 1, 0}) // 0.0
	put(foreign, []float32{1, 0, 0})

	matches, err := s.Vectors().NearestNodes(ctx, "u1", []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, a.ID, matches[0].NodeID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
	assert.Equal(t, b.ID, matches[1].NodeID)
	assert.InDelta(t, 0.7071, matches[1].Similarity, 1e-3)

	top, err := s.Vectors().NearestNodes(ctx, "u1", []float32{1, 0, 0}, 0.5, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	got, err := s.Vectors().GetEmbedding(ctx, b.ID, "m")
	require.NoError(t, err)
	assert.Equal(t, "hash-b", got.ContentHash)
	assert.Len(t, got.Vector, 3)

	put(b, []float32{0, 0, 1})
	matches, err = s.Vectors().NearestNodes(ctx, "u1", []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "re-put replaces the vector")

	require.NoError(t, s.Vectors().DeleteEmbeddings(ctx, []string{a.ID}))
	matches, err = s.Vectors().NearestNodes(ctx, "u1", []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	err = s.Vectors().PutEmbedding(ctx, &store.Embedding{NodeID: a.ID, UserID: "u1", Model: "m"})
	assert.True(t, moserr.IsInvalidInput(err))
}

func testLedger(t *testing.T, s store.Store) {
	ctx := context.Background()
	entry := &store.LedgerEntry{SessionID: "s1", MosNodeID: "n1", SourceType: store.SourceTypeConcept, SourceKey: "caching", SyncedAt: base}

	inserted, err := s.Ledger().Record(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	again, err := s.Ledger().Record(ctx, &store.LedgerEntry{SessionID: "s1", MosNodeID: "n2", SourceType: store.SourceTypeConcept, SourceKey: "caching", SyncedAt: base})
	require.NoError(t, err)
	assert.False(t, again, "duplicate triple is a no-op")

	got, err := s.Ledger().Get(ctx, "s1", store.SourceTypeConcept, "caching")
	require.NoError(t, err)
	assert.Equal(t, "n1", got.MosNodeID, "first writer wins")

	ok, err := s.Ledger().Exists(ctx, "s1", store.SourceTypeConcept, "caching")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Ledger().Exists(ctx, "s1", store.SourceTypeEdge, "caching")
	require.NoError(t, err)
	assert.False(t, ok, "source type is part of the key")

	_, err = s.Ledger().Get(ctx, "s2", store.SourceTypeConcept, "caching")
	assert.True(t, store.IsNotFound(err))

	_, err = s.Ledger().Record(ctx, &store.LedgerEntry{SessionID: "s1", SourceType: store.SourceTypeEdge, SourceKey: "k", MosNodeID: "e1", SyncedAt: base.Add(time.Second)})
	require.NoError(t, err)
	entries, err := s.Ledger().ListSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, store.SourceTypeConcept, entries[0].SourceType)

	_, err = s.Ledger().Record(ctx, &store.LedgerEntry{SessionID: "s1", SourceType: "prompt", SourceKey: "k", MosNodeID: "n"})
	assert.True(t, moserr.IsInvalidInput(err))
}

func edgeIDs(edges []*store.Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}
