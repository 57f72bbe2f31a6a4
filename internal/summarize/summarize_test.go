// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package summarize_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/store"
	"github.com/arc-dev/mos/internal/store/memstore"
	"github.com/arc-dev/mos/internal/summarize"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

type call struct {
	system, user string
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []call
	reply string
	err   error
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{system: system, user: user})
	return f.reply, f.err
}

type fixture struct {
	graph *graph.Engine
	chat  *fakeCompleter
	sum   *summarize.Summarizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := graph.NewEngine(s, graph.WithClock(func() time.Time { return clock }))
	chat := &fakeCompleter{reply: "answer"}
	return &fixture{
		graph: g,
		chat:  chat,
		sum:   summarize.New(g, search.New(s), chat, nil),
	}
}

func (f *fixture) node(t *testing.T, userID, slug, title string) *store.Node {
	t.Helper()
	n, err := f.graph.CreateNode(context.Background(), graph.CreateNodeInput{
		UserID: userID, Type: store.NodeTypeConcept, Slug: slug, Title: title,
	})
	require.NoError(t, err)
	return n
}

func (f *fixture) edge(t *testing.T, src, tgt *store.Node, typ store.EdgeType) {
	t.Helper()
	_, err := f.graph.CreateEdge(context.Background(), graph.CreateEdgeInput{
		UserID: src.UserID, SourceID: src.ID, TargetID: tgt.ID, EdgeType: typ,
	})
	require.NoError(t, err)
}

func TestSummarizeNode_WithoutChatProvider(t *testing.T) {
	t.Parallel()

	s := memstore.New()
	g := graph.NewEngine(s)
	sum := summarize.New(g, search.New(s), nil, nil)

	_, err := sum.SummarizeNode(context.Background(), &graph.NodeWithEdges{Node: caching})
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderRequestInvalid))
}

func TestSummarizeNodeByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a := f.node(t, "u1", "caching", "Caching")
	b := f.node(t, "u1", "redis", "Redis")
	f.edge(t, a, b, store.EdgeTypeUsedIn)

	out, err := f.sum.SummarizeNodeByID(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, f.chat.calls, 1)
	assert.Contains(t, f.chat.calls[0].system, "2-4 sentence summary")
	assert.Equal(t, "# Caching (concept)\n\n## Connections:\n  -> [used_in, weight=1] Redis (concept)", f.chat.calls[0].user)

	_, err = f.sum.SummarizeNodeByID(ctx, "u2", a.ID)
	assert.True(t, moserr.HasCode(err, moserr.CodeGraphNodeNotFound))
}

func TestWhatDoIKnow_NoResultsSkipsModel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.sum.WhatDoIKnow(context.Background(), "u1", "quantum")
	require.NoError(t, err)
	assert.Equal(t, `You don't have any nodes related to "quantum" yet.`, out)
	assert.Empty(t, f.chat.calls)
}

func TestWhatDoIKnow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.node(t, "u1", "caching", "Caching")
	f.node(t, "u1", "queues", "Queues")
	f.node(t, "u2", "caching", "Caching")

	out, err := f.sum.WhatDoIKnow(context.Background(), "u1", "caching")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, f.chat.calls, 1)
	assert.Contains(t, f.chat.calls[0].system, "personal knowledge assistant")
	assert.Equal(t, "Topic: caching\n\nFound 1 related nodes:\n\n# Caching (concept)", f.chat.calls[0].user)
}

func TestWhatDoIKnow_ModelError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.chat.err = errors.New("boom")

	f.node(t, "u1", "caching", "Caching")

	_, err := f.sum.WhatDoIKnow(context.Background(), "u1", "caching")
	assert.EqualError(t, err, "boom")
}

func TestGenerateCribSheet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	root := f.node(t, "u1", "system-design", "System Design")
	caching := f.node(t, "u1", "caching", "Caching")
	queues := f.node(t, "u1", "queues", "Queues")
	hashing := f.node(t, "u1", "hashing", "Hashing")
	f.edge(t, root, caching, store.EdgeTypeRelatedTo)
	f.edge(t, queues, root, store.EdgeTypePartOf)
	f.edge(t, caching, hashing, store.EdgeTypeDependsOn)

	out, err := f.sum.GenerateCribSheet(ctx, "u1", root.ID)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, f.chat.calls, 1)
	prompt := f.chat.calls[0].user
	assert.Contains(t, f.chat.calls[0].system, "## Gaps & Questions")
	assert.Contains(t, prompt, "# Central Node\n# System Design (concept)")
	assert.Contains(t, prompt, "# Direct Neighbors (detail)\n# Caching (concept)")
	assert.Contains(t, prompt, "# Queues (concept)\n\n## Connections:\n  -> [part_of, weight=1] System Design (concept)")
	assert.Contains(t, prompt, "# Extended Network (2 hops)\n- Hashing (concept) via [depends_on]")
}

func TestGenerateCribSheet_NodeNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.sum.GenerateCribSheet(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.True(t, moserr.IsNotFound(err))
	assert.Equal(t, "missing", moserr.FieldsOf(err)["node_id"])
	assert.Empty(t, f.chat.calls)
}

func TestGenerateCribSheet_CapsNeighborDetails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	root := f.node(t, "u1", "hub", "Hub")
	for i := range summarize.MaxNeighborDetails + 3 {
		n := f.node(t, "u1", "spoke-"+string(rune('a'+i)), "Spoke "+string(rune('A'+i)))
		f.edge(t, root, n, store.EdgeTypeRelatedTo)
	}

	_, err := f.sum.GenerateCribSheet(context.Background(), "u1", root.ID)
	require.NoError(t, err)

	require.Len(t, f.chat.calls, 1)
	prompt := f.chat.calls[0].user
	assert.Contains(t, prompt, "# Spoke J (concept)")
	assert.NotContains(t, prompt, "# Spoke K (concept)")
	assert.NotContains(t, prompt, "# Extended Network")
}
