// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sds_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/store"
	"github.com/arc-dev/mos/internal/store/memstore"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

var (
	session = sds.Session{
		ID:       "sess-1234-5678",
		UserID:   "u1",
		PromptID: "p1",
		Mode:     "60_min",
		Status:   "evaluated",
	}
	evaluation = sds.Evaluation{
		ID:               "eval-1",
		OverallScore:     75,
		ComponentScore:   80,
		ScalingScore:     70,
		ReliabilityScore: 65,
		TradeoffScore:    60,
		ComponentsFound:  []string{"Cache", "Load Balancer"},
	}
)

// flakyEdges fails the first CreateEdge call.
type flakyEdges struct {
	store.EdgeStore
	mu     sync.Mutex
	failed bool
}

func (f *flakyEdges) CreateEdge(ctx context.Context, e *store.Edge) (*store.Edge, error) {
	f.mu.Lock()
	fail := !f.failed
	f.failed = true
	f.mu.Unlock()
	if fail {
		return nil, moserr.New(moserr.CodeStoreDatabaseFailure, "disk full")
	}
	return f.EdgeStore.CreateEdge(ctx, e)
}

type flakyStore struct {
	*memstore.Store
	edges *flakyEdges
}

func (s *flakyStore) Edges() store.EdgeStore { return s.edges }

func newConnector(s store.Store, opts ...sds.Option) *sds.Connector {
	return sds.New(graph.NewEngine(s), opts...)
}

func TestSync_CreatesSessionConceptsAndEdges(t *testing.T) {
	s := memstore.New()
	m := metrics.New()
	ctx := context.Background()

	res, err := newConnector(s, sds.WithMetrics(m)).Sync(ctx, session, evaluation)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	require.Len(t, res.ConceptNodeIDs, 2)
	require.Len(t, res.EdgeIDs, 2)

	sessionNode, err := s.Nodes().GetNode(ctx, res.SessionNodeID)
	require.NoError(t, err)
	assert.Equal(t, "sds-session-sess-1234-5678", sessionNode.Slug)
	assert.Equal(t, "SDS Session: sess-123", sessionNode.Title)
	assert.Equal(t, store.NodeTypeNote, sessionNode.Type)
	assert.Equal(t, "System Design Session - 60_min mode\n"+
		"Overall score: 75/100\n"+
		"Components: 80/100\n"+
		"Scaling: 70/100\n"+
		"Reliability: 65/100\n"+
		"Trade-offs: 60/100", sessionNode.Content)
	assert.Equal(t, "interview", sessionNode.Metadata["subtype"])
	assert.Equal(t, "sess-1234-5678", sessionNode.Metadata["sds_session_id"])
	assert.Equal(t, "eval-1", sessionNode.Metadata["sds_evaluation_id"])
	assert.Equal(t, "p1", sessionNode.Metadata["prompt_id"])

	cache, err := s.Nodes().GetNodeBySlug(ctx, "u1", "cache")
	require.NoError(t, err)
	lb, err := s.Nodes().GetNodeBySlug(ctx, "u1", "load-balancer")
	require.NoError(t, err)
	assert.Equal(t, []string{cache.ID, lb.ID}, res.ConceptNodeIDs)
	assert.Equal(t, store.NodeTypeConcept, lb.Type)
	assert.Equal(t, "Load Balancer", lb.Title)
	assert.Equal(t, "sds", lb.Metadata["source"])
	assert.Equal(t, true, lb.Metadata["auto_created"])

	for i, id := range res.EdgeIDs {
		edge, err := s.Edges().GetEdge(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, store.EdgeTypePracticedAt, edge.EdgeType)
		assert.Equal(t, res.SessionNodeID, edge.SourceID)
		assert.Equal(t, res.ConceptNodeIDs[i], edge.TargetID)
		assert.Equal(t, 0.8, edge.Weight)
		assert.Nil(t, edge.CustomLabel)
	}

	entries, err := s.Ledger().ListSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = string(e.SourceType) + ":" + e.SourceKey
	}
	assert.Equal(t, []string{
		"session:sess-1234-5678",
		"concept:cache",
		"edge:sds-session-sess-1234-5678::cache",
		"concept:load-balancer",
		"edge:sds-session-sess-1234-5678::load-balancer",
	}, keys)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.SyncItems.WithLabelValues("created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SyncItems.WithLabelValues("skipped")))
}

func TestSync_IsIdempotent(t *testing.T) {
	s := memstore.New()
	c := newConnector(s)
	ctx := context.Background()

	first, err := c.Sync(ctx, session, evaluation)
	require.NoError(t, err)
	second, err := c.Sync(ctx, session, evaluation)
	require.NoError(t, err)

	assert.Equal(t, first.SessionNodeID, second.SessionNodeID)
	assert.Equal(t, first.ConceptNodeIDs, second.ConceptNodeIDs)
	assert.Equal(t, first.EdgeIDs, second.EdgeIDs)
	assert.GreaterOrEqual(t, second.Skipped, 1+2*len(evaluation.ComponentsFound))

	edges, err := s.Edges().ListEdges(ctx, store.EdgeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestSync_ResumesAfterFailure(t *testing.T) {
	mem := memstore.New()
	flaky := &flakyStore{Store: mem, edges: &flakyEdges{EdgeStore: mem.Edges()}}
	ctx := context.Background()

	_, err := newConnector(flaky).Sync(ctx, session, evaluation)
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeStoreDatabaseFailure))

	entries, err := mem.Ledger().ListSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "session and first concept were recorded before the failure")

	res, err := newConnector(flaky).Sync(ctx, session, evaluation)
	require.NoError(t, err)
	assert.Len(t, res.ConceptNodeIDs, 2)
	assert.Len(t, res.EdgeIDs, 2)
	assert.Equal(t, 2, res.Skipped)

	edges, err := mem.Edges().ListEdges(ctx, store.EdgeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestSync_ConcurrentCallsConverge(t *testing.T) {
	s := memstore.New()
	c := newConnector(s)
	ctx := context.Background()

	const workers = 8
	results := make([]*sds.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Sync(ctx, session, evaluation)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results[1:] {
		require.NotNil(t, res)
		assert.Equal(t, results[0].SessionNodeID, res.SessionNodeID)
		assert.Equal(t, results[0].ConceptNodeIDs, res.ConceptNodeIDs)
		assert.Equal(t, results[0].EdgeIDs, res.EdgeIDs)
	}

	edges, err := s.Edges().ListEdges(ctx, store.EdgeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	entries, err := s.Ledger().ListSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestSync_ComponentsWithoutSlugAreIgnored(t *testing.T) {
	eval := evaluation
	eval.ComponentsFound = []string{"!!!", "Cache"}

	res, err := newConnector(memstore.New()).Sync(context.Background(), session, eval)
	require.NoError(t, err)
	assert.Len(t, res.ConceptNodeIDs, 1)
	assert.Len(t, res.EdgeIDs, 1)
}

func TestSync_InvalidInput(t *testing.T) {
	c := newConnector(memstore.New())

	bad := session
	bad.UserID = ""
	_, err := c.Sync(context.Background(), bad, evaluation)
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeSyncInputInvalid))

	badEval := evaluation
	badEval.ComponentScore = 120
	_, err = c.Sync(context.Background(), session, badEval)
	require.Error(t, err)
	assert.True(t, moserr.IsInvalidInput(err))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "SDS Session: abc", sds.SessionTitle("abc"))
	assert.Equal(t, "a::b", sds.EdgeKey("a", "b"))
	assert.Equal(t, "sds-session-x", sds.SessionSlug("x"))
}
