// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/server"
	"github.com/arc-dev/mos/internal/store"
	"github.com/arc-dev/mos/internal/store/memstore"
	"github.com/arc-dev/mos/internal/suggest"
	"github.com/arc-dev/mos/internal/summarize"
	"github.com/arc-dev/mos/pkg/health"
)

type fakeCompleter struct {
	answer string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return f.answer, nil
}

type fakeHealth struct {
	available bool
}

func (f fakeHealth) HealthMetrics() health.Metrics {
	return health.Metrics{Available: f.available}
}

type fixture struct {
	handler http.Handler
	graph   *graph.Engine
	metrics *metrics.Collector
}

func newFixture(t *testing.T, mutate ...func(*server.Services)) *fixture {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := memstore.New()
	g := graph.NewEngine(s, graph.WithClock(func() time.Time { return now }))
	se := search.New(s)
	m := metrics.New()

	svc := &server.Services{
		Graph:      g,
		Search:     se,
		Summarizer: summarize.New(g, se, &fakeCompleter{answer: "You know about caching."}, nil),
		Suggest:    suggest.NewRanker(s, suggest.WithClock(func() time.Time { return now })),
		Sync:       sds.New(g),
		Metrics:    m,
		Health:     map[string]provider.HealthReporter{"openai": fakeHealth{available: true}},
	}
	for _, fn := range mutate {
		fn(svc)
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return &fixture{handler: srv.Handler(), graph: g, metrics: m}
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(server.UserHeader, user)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type nodeBody struct {
	Node store.Node `json:"node"`
}

func (f *fixture) createNode(t *testing.T, user, typ, title string) store.Node {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/nodes", user, map[string]any{"type": typ, "title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[nodeBody](t, w).Node
}

func TestNew_RequiresGraph(t *testing.T) {
	_, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, &server.Services{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[server.HealthBody](t, w)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Providers["openai"].Available)
}

func TestHealth_Degraded(t *testing.T) {
	f := newFixture(t, func(svc *server.Services) {
		svc.Health = map[string]provider.HealthReporter{"openai": fakeHealth{available: false}}
	})

	body := decode[server.HealthBody](t, f.do(t, http.MethodGet, "/health", "", nil))
	assert.Equal(t, "degraded", body.Status)
}

func TestUserHeaderRequired(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/nodes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), server.UserHeader)
}

func TestCreateNode_DerivesSlug(t *testing.T) {
	f := newFixture(t)

	node := f.createNode(t, "u1", "concept", "Load Balancing")
	assert.Equal(t, "load-balancing", node.Slug)
	assert.Equal(t, "u1", node.UserID)
	assert.NotEmpty(t, node.ID)
}

func TestCreateNode_InvalidType(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/nodes", "u1", map[string]any{"type": "widget", "title": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNode_OtherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	node := f.createNode(t, "u1", "concept", "Caching")

	w := f.do(t, http.MethodGet, "/api/v1/nodes/"+node.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/nodes/"+node.ID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[graph.NodeWithEdges](t, w)
	assert.Equal(t, "Caching", got.Node.Title)
	assert.Empty(t, got.Edges)
}

func TestListNodes(t *testing.T) {
	f := newFixture(t)
	f.createNode(t, "u1", "concept", "Caching")
	f.createNode(t, "u1", "person", "Ada")
	f.createNode(t, "u2", "concept", "Sharding")

	w := f.do(t, http.MethodGet, "/api/v1/nodes?type=concept", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Nodes []store.Node `json:"nodes"`
	}](t, w)
	require.Len(t, body.Nodes, 1)
	assert.Equal(t, "Caching", body.Nodes[0].Title)
}

func TestUpdateAndDeleteNode(t *testing.T) {
	f := newFixture(t)
	node := f.createNode(t, "u1", "concept", "Caching")

	w := f.do(t, http.MethodPatch, "/api/v1/nodes/"+node.ID, "u1", map[string]any{"summary": "Keep hot data close."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Keep hot data close.", decode[nodeBody](t, w).Node.Summary)

	w = f.do(t, http.MethodDelete, "/api/v1/nodes/"+node.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/nodes/"+node.ID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, stripSchema(t, w.Body.Bytes()))

	got, err := f.graph.GetNode(t.Context(), node.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEdgesAndConnections(t *testing.T) {
	f := newFixture(t)
	a := f.createNode(t, "u1", "concept", "Caching")
	b := f.createNode(t, "u1", "concept", "Redis")
	c := f.createNode(t, "u1", "project", "Feed Service")

	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}} {
		w := f.do(t, http.MethodPost, "/api/v1/edges", "u1", map[string]any{
			"source_id": pair[0], "target_id": pair[1], "edge_type": "used_in",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/api/v1/nodes/"+a.ID+"/connections?depth=2", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Connections []graph.Connection `json:"connections"`
	}](t, w)
	require.Len(t, body.Connections, 2)
	assert.Equal(t, "Redis", body.Connections[0].Node.Title)
	assert.Equal(t, 1, body.Connections[0].Depth)
	assert.Equal(t, "Feed Service", body.Connections[1].Node.Title)
	assert.Equal(t, 2, body.Connections[1].Depth)

	w = f.do(t, http.MethodGet, "/api/v1/nodes/"+a.ID+"/connections?depth=3", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateEdge_ForeignNode(t *testing.T) {
	f := newFixture(t)
	mine := f.createNode(t, "u1", "concept", "Caching")
	theirs := f.createNode(t, "u2", "concept", "Redis")

	w := f.do(t, http.MethodPost, "/api/v1/edges", "u1", map[string]any{
		"source_id": mine.ID, "target_id": theirs.ID, "edge_type": "related_to",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEdge(t *testing.T) {
	f := newFixture(t)
	a := f.createNode(t, "u1", "concept", "Caching")
	b := f.createNode(t, "u1", "concept", "Redis")

	w := f.do(t, http.MethodPost, "/api/v1/edges", "u1", map[string]any{
		"source_id": a.ID, "target_id": b.ID, "edge_type": "related_to",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	edge := decode[struct {
		Edge store.Edge `json:"edge"`
	}](t, w).Edge

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/edges/"+edge.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/v1/edges/"+edge.ID, "u1", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/v1/edges/"+edge.ID, "u1", nil).Code)
}

func TestDelete_AbsentIDSucceeds(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/v1/edges/does-not-exist", "/api/v1/nodes/does-not-exist"} {
		w := f.do(t, http.MethodDelete, path, "u1", nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"success":true`, path)
	}

	n := f.createNode(t, "u1", "concept", "Caching")
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/nodes/"+n.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/v1/nodes/"+n.ID, "u1", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/v1/nodes/"+n.ID, "u1", nil).Code)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/nodes", "u1", map[string]any{
		"type": "concept", "title": "Load Balancing", "content": "Spread requests across backends.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, mode := range []string{"keyword", "hybrid"} {
		w := f.do(t, http.MethodPost, "/api/v1/search", "u1", map[string]any{"query": "balancing", "mode": mode})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode[struct {
			Results []server.SearchHit `json:"results"`
		}](t, w)
		require.Len(t, body.Results, 1, mode)
		assert.Equal(t, "Load Balancing", body.Results[0].Title)
		assert.Equal(t, "Spread requests across backends.", body.Results[0].Snippet)
		assert.Equal(t, search.SourceKeyword, body.Results[0].Source)
	}
}

func TestAsk(t *testing.T) {
	f := newFixture(t)
	f.createNode(t, "u1", "concept", "Caching")

	w := f.do(t, http.MethodPost, "/api/v1/ask", "u1", map[string]any{"question": "caching"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "You know about caching.", decode[struct {
		Answer string `json:"answer"`
	}](t, w).Answer)
}

func TestCribSheet(t *testing.T) {
	f := newFixture(t)
	node := f.createNode(t, "u1", "concept", "Caching")

	w := f.do(t, http.MethodGet, "/api/v1/crib/"+node.ID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "You know about caching.", decode[struct {
		Content string `json:"content"`
	}](t, w).Content)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/crib/"+node.ID, "u2", nil).Code)
}

func TestKnowledgeRoutes_NotConfigured(t *testing.T) {
	f := newFixture(t, func(svc *server.Services) {
		svc.Summarizer = nil
		svc.Suggest = nil
	})

	assert.Equal(t, http.StatusNotImplemented,
		f.do(t, http.MethodPost, "/api/v1/ask", "u1", map[string]any{"question": "x"}).Code)
	assert.Equal(t, http.StatusNotImplemented,
		f.do(t, http.MethodGet, "/api/v1/suggestions", "u1", nil).Code)
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	f.createNode(t, "u1", "concept", "Sharding")

	w := f.do(t, http.MethodGet, "/api/v1/suggestions", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}](t, w)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "Sharding", body.Suggestions[0].Title)
	assert.True(t, body.Suggestions[0].IsStale)
	assert.Nil(t, body.Suggestions[0].LastPracticed)
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	payload := map[string]any{
		"session": map[string]any{
			"id":         "sess-1",
			"started_at": "2026-03-01T10:00:00Z",
		},
		"evaluation": map[string]any{
			"id":               "eval-1",
			"overall_score":    80,
			"components_found": []string{"Load Balancer", "Cache"},
		},
	}

	w := f.do(t, http.MethodPost, "/api/v1/sync", "u1", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[sds.Result](t, w)
	assert.NotEmpty(t, result.SessionNodeID)
	assert.Len(t, result.ConceptNodeIDs, 2)
	assert.Len(t, result.EdgeIDs, 2)

	session, err := f.graph.GetNode(t.Context(), result.SessionNodeID)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
}

func TestSync_OtherUserForbidden(t *testing.T) {
	f := newFixture(t)
	payload := map[string]any{
		"session":    map[string]any{"id": "sess-1", "user_id": "u2"},
		"evaluation": map[string]any{"id": "eval-1"},
	}

	w := f.do(t, http.MethodPost, "/api/v1/sync", "u1", payload)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/v1/nodes", "u1", nil)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mos_http_requests_total{method="GET",route="/api/v1/nodes",status="200"} 1`)
}

// stripSchema drops the $schema link huma adds to response bodies.
func stripSchema(t *testing.T, data []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for k := range m {
		if strings.HasPrefix(k, "$") {
			delete(m, k)
		}
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
