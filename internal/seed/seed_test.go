// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package seed_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/seed"
	"github.com/arc-dev/mos/internal/store"
	"github.com/arc-dev/mos/internal/store/memstore"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func loadFixture(t *testing.T) *seed.Document {
	t.Helper()
	data, err := os.ReadFile("testdata/graph.yaml")
	require.NoError(t, err)
	doc, err := seed.Parse(data)
	require.NoError(t, err)
	return doc
}

func TestParse(t *testing.T) {
	t.Parallel()
	doc := loadFixture(t)

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "load-balancing", doc.Nodes[1].Slug)
	assert.Equal(t, "seed", doc.Nodes[1].Metadata["source"])
	require.Len(t, doc.Edges, 3)
	require.NotNil(t, doc.Edges[1].Weight)
	assert.InDelta(t, 0.8, *doc.Edges[1].Weight, 1e-9)
	assert.Equal(t, "pairs well with", doc.Edges[2].Label)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"malformed", "nodes: [", "seed parse"},
		{"unknown node type", "nodes:\n  - type: gadget\n    title: X\n", `unknown type "gadget"`},
		{"missing title", "nodes:\n  - type: concept\n    slug: x\n", "title is required"},
		{"unknown edge type", "edges:\n  - source: a\n    target: b\n    type: likes\n", `unknown type "likes"`},
		{"missing endpoint", "edges:\n  - source: a\n    type: knows\n", "source and target are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := seed.Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, moserr.HasCode(err, moserr.CodeSeedParseInvalidFormat))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImport(t *testing.T) {
	t.Parallel()
	s := memstore.New()
	g := graph.NewEngine(s)
	ctx := context.Background()

	res, err := seed.Import(ctx, g, "u1", loadFixture(t), nil)
	require.NoError(t, err)
	assert.Equal(t, &seed.Result{Nodes: 3, Edges: 3}, res)

	caching, err := g.GetNodeBySlug(ctx, "u1", "caching")
	require.NoError(t, err)
	require.NotNil(t, caching)

	edges, err := s.Edges().EdgesFrom(ctx, []string{caching.ID})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, store.EdgeTypePartOf, edges[0].EdgeType)
	assert.InDelta(t, 0.8, edges[0].Weight, 1e-9)
	assert.Equal(t, store.EdgeTypeCustom, edges[1].EdgeType)
	require.NotNil(t, edges[1].CustomLabel)
	assert.Equal(t, "pairs well with", *edges[1].CustomLabel)

	again, err := seed.Import(ctx, g, "u1", loadFixture(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Nodes)

	nodes, err := g.ListNodes(ctx, "u1", graph.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestImport_ResolvesExistingNodes(t *testing.T) {
	t.Parallel()
	g := graph.NewEngine(memstore.New())
	ctx := context.Background()

	_, err := g.CreateNode(ctx, graph.CreateNodeInput{
		UserID: "u1", Type: store.NodeTypePerson, Slug: "ada", Title: "Ada",
	})
	require.NoError(t, err)

	doc, err := seed.Parse([]byte("nodes:\n  - type: org\n    title: Analytical Engines\nedges:\n  - source: ada\n    target: analytical-engines\n    type: works_at\n"))
	require.NoError(t, err)

	res, err := seed.Import(ctx, g, "u1", doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Edges)
}

func TestImport_UnknownEndpoint(t *testing.T) {
	t.Parallel()
	g := graph.NewEngine(memstore.New())

	doc, err := seed.Parse([]byte("nodes:\n  - type: concept\n    title: Caching\nedges:\n  - source: caching\n    target: nowhere\n    type: related_to\n"))
	require.NoError(t, err)

	res, err := seed.Import(context.Background(), g, "u1", doc, nil)
	require.Error(t, err)
	assert.True(t, moserr.IsInvalidInput(err))
	assert.Equal(t, "nowhere", moserr.FieldsOf(err)["slug"])
	assert.Equal(t, 1, res.Nodes)
	assert.Equal(t, 0, res.Edges)
}
