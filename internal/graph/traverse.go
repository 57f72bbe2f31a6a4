// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package graph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// MaxDepth bounds GetConnections.
const MaxDepth = 2

// Connection is one edge discovered by GetConnections together with the
// neighbor it led to and the hop at which it was found.
type Connection struct {
	Edge  *store.Edge `json:"edge"`
	Node  *store.Node `json:"node"`
	Depth int         `json:"depth"`
}

// NodeWithEdges is a node, its direct edges in both directions and the
// projections of the nodes on the other end.
type NodeWithEdges struct {
	Node           *store.Node     `json:"node"`
	Edges          []*store.Edge   `json:"edges"`
	ConnectedNodes []store.NodeRef `json:"connected_nodes"`
}

// GetConnections expands the neighborhood of nodeID breadth first, one hop
// at a time, up to depth hops. Edges are treated as symmetric for
// reachability; direction only restricts which incident edges are read.
// Each node is visited once and results are returned in discovery order.
func (e *Engine) GetConnections(ctx context.Context, nodeID string, depth int, dir store.Direction) ([]Connection, error) {
	if dir == "" {
		dir = store.DirectionBoth
	}
	if !dir.Valid() {
		return nil, moserr.Errorf(moserr.CodeGraphInputInvalid, "invalid direction %q", dir)
	}
	if depth > MaxDepth {
		return nil, moserr.Errorf(moserr.CodeGraphInputInvalid, "depth %d exceeds maximum of %d", depth, MaxDepth)
	}

	ctx, span := e.tracer.Start(ctx, "graph.GetConnections",
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
			attribute.Int("depth", depth),
			attribute.String("direction", string(dir)),
		),
	)
	defer span.End()

	results := make([]Connection, 0)
	visited := map[string]bool{nodeID: true}
	frontier := []string{nodeID}

	for hop := 1; hop <= depth; hop++ {
		if len(frontier) == 0 {
			break
		}

		edges, err := e.incidentEdges(ctx, frontier, dir)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "edge fetch failed")
			return nil, err
		}

		inFrontier := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}
		neighborOf := func(edge *store.Edge) string {
			if edge.SourceID == nodeID || inFrontier[edge.SourceID] {
				return edge.TargetID
			}
			return edge.SourceID
		}

		var next []string
		for _, edge := range edges {
			id := neighborOf(edge)
			if !visited[id] {
				visited[id] = true
				next = append(next, id)
			}
		}

		fetched := map[string]*store.Node{}
		if len(next) > 0 {
			nodes, err := e.store.Nodes().GetNodes(ctx, next)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "node fetch failed")
				return nil, err
			}
			for _, n := range nodes {
				fetched[n.ID] = n
			}
		}

		for _, edge := range edges {
			if n, ok := fetched[neighborOf(edge)]; ok {
				results = append(results, Connection{Edge: edge, Node: n, Depth: hop})
			}
		}

		frontier = next
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// incidentEdges reads the edges touching ids in the requested direction.
// For DirectionBoth the two reads run concurrently and are merged, outgoing
// first, without duplicate ids.
func (e *Engine) incidentEdges(ctx context.Context, ids []string, dir store.Direction) ([]*store.Edge, error) {
	var outgoing, incoming []*store.Edge

	g, gctx := errgroup.WithContext(ctx)
	if dir == store.DirectionOutgoing || dir == store.DirectionBoth {
		g.Go(func() error {
			var err error
			outgoing, err = e.store.Edges().EdgesFrom(gctx, ids)
			return err
		})
	}
	if dir == store.DirectionIncoming || dir == store.DirectionBoth {
		g.Go(func() error {
			var err error
			incoming, err = e.store.Edges().EdgesTo(gctx, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, moserr.Wrap(err, moserr.CodeGraphTraversalFailure, "fetching incident edges")
	}

	return dedupeEdges(outgoing, incoming), nil
}

func dedupeEdges(lists ...[]*store.Edge) []*store.Edge {
	seen := make(map[string]bool)
	var out []*store.Edge
	for _, list := range lists {
		for _, edge := range list {
			if seen[edge.ID] {
				continue
			}
			seen[edge.ID] = true
			out = append(out, edge)
		}
	}
	return out
}

// GetNodeWithEdges returns nil, nil when the node does not exist.
func (e *Engine) GetNodeWithEdges(ctx context.Context, nodeID string) (*NodeWithEdges, error) {
	ctx, span := e.tracer.Start(ctx, "graph.GetNodeWithEdges",
		trace.WithAttributes(attribute.String("node.id", nodeID)))
	defer span.End()

	node, err := e.GetNode(ctx, nodeID)
	if err != nil || node == nil {
		return nil, err
	}

	edges, err := e.incidentEdges(ctx, []string{nodeID}, store.DirectionBoth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edge fetch failed")
		return nil, err
	}
	if edges == nil {
		edges = []*store.Edge{}
	}

	var otherIDs []string
	seen := map[string]bool{nodeID: true}
	for _, edge := range edges {
		for _, id := range []string{edge.SourceID, edge.TargetID} {
			if !seen[id] {
				seen[id] = true
				otherIDs = append(otherIDs, id)
			}
		}
	}

	refs := make([]store.NodeRef, 0, len(otherIDs))
	if len(otherIDs) > 0 {
		others, err := e.store.Nodes().GetNodes(ctx, otherIDs)
		if err != nil {
			return nil, err
		}
		for _, other := range others {
			refs = append(refs, other.Ref())
		}
	}

	return &NodeWithEdges{Node: node, Edges: edges, ConnectedNodes: refs}, nil
}
