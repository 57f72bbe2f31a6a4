// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func TestGetConnections_DepthZeroAndIsolated(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a, b := mustCreate(t, e, "a"), mustCreate(t, e, "b")
	lonely := mustCreate(t, e, "lonely")
	mustLink(t, e, a, b)

	conns, err := e.GetConnections(ctx, a.ID, 0, store.DirectionBoth)
	require.NoError(t, err)
	assert.NotNil(t, conns)
	assert.Empty(t, conns)

	conns, err = e.GetConnections(ctx, lonely.ID, 2, store.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestGetConnections_ChainOutgoing(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a, b, c := mustCreate(t, e, "a"), mustCreate(t, e, "b"), mustCreate(t, e, "c")
	ab := mustLink(t, e, a, b)
	bc := mustLink(t, e, b, c)

	conns, err := e.GetConnections(ctx, a.ID, 2, store.DirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, conns, 2)

	assert.Equal(t, ab.ID, conns[0].Edge.ID)
	assert.Equal(t, b.ID, conns[0].Node.ID)
	assert.Equal(t, 1, conns[0].Depth)

	assert.Equal(t, bc.ID, conns[1].Edge.ID)
	assert.Equal(t, c.ID, conns[1].Node.ID)
	assert.Equal(t, 2, conns[1].Depth)

	for _, conn := range conns {
		assert.NotEqual(t, a.ID, conn.Node.ID, "the start node is never revisited")
	}

	conns, err = e.GetConnections(ctx, a.ID, 1, store.DirectionOutgoing)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	conns, err = e.GetConnections(ctx, a.ID, 2, store.DirectionIncoming)
	require.NoError(t, err)
	assert.Empty(t, conns, "a has no incoming edges")
}

func TestGetConnections_BothDirections(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a, b, c := mustCreate(t, e, "a"), mustCreate(t, e, "b"), mustCreate(t, e, "c")
	mustLink(t, e, a, b)
	mustLink(t, e, b, c)

	conns, err := e.GetConnections(ctx, b.ID, 1, "")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	got := []string{conns[0].Node.ID, conns[1].Node.ID}
	assert.ElementsMatch(t, []string{a.ID, c.ID}, got)
	assert.Equal(t, c.ID, conns[0].Node.ID, "outgoing edges are discovered first")
}

func TestGetConnections_CycleVisitsEachNodeOnce(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a, b, c := mustCreate(t, e, "a"), mustCreate(t, e, "b"), mustCreate(t, e, "c")
	mustLink(t, e, a, b)
	mustLink(t, e, b, c)
	mustLink(t, e, c, a)

	conns, err := e.GetConnections(ctx, a.ID, 2, store.DirectionBoth)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	for _, conn := range conns {
		assert.Equal(t, 1, conn.Depth)
	}
}

func TestGetConnections_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a := mustCreate(t, e, "a")

	_, err := e.GetConnections(ctx, a.ID, 1, "sideways")
	assert.True(t, moserr.IsInvalidInput(err))

	_, err = e.GetConnections(ctx, a.ID, graph.MaxDepth+1, store.DirectionBoth)
	assert.True(t, moserr.IsInvalidInput(err))
}

func TestGetNodeWithEdges(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	a, b, c := mustCreate(t, e, "a"), mustCreate(t, e, "b"), mustCreate(t, e, "c")
	ab := mustLink(t, e, a, b)
	ca := mustLink(t, e, c, a)
	ab2 := mustLink(t, e, a, b)

	nwe, err := e.GetNodeWithEdges(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, nwe)
	assert.Equal(t, a.ID, nwe.Node.ID)

	ids := make([]string, 0, len(nwe.Edges))
	for _, edge := range nwe.Edges {
		ids = append(ids, edge.ID)
	}
	assert.Equal(t, []string{ab.ID, ab2.ID, ca.ID}, ids)

	require.Len(t, nwe.ConnectedNodes, 2, "endpoints are deduplicated")
	assert.ElementsMatch(t, []store.NodeRef{b.Ref(), c.Ref()}, nwe.ConnectedNodes)
}
