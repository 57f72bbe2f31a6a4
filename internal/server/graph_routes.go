// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/store"
)

func (s *Server) registerGraphRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-nodes",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes",
		Summary:     "List nodes",
		Tags:        []string{"nodes"},
	}, s.handleListNodes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-node",
		Method:        http.MethodPost,
		Path:          "/api/v1/nodes",
		Summary:       "Create or update a node by slug",
		Tags:          []string{"nodes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-node",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Get a node with its edges",
		Tags:        []string{"nodes"},
	}, s.handleGetNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-node",
		Method:      http.MethodPatch,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Update a node",
		Tags:        []string{"nodes"},
	}, s.handleUpdateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-node",
		Method:      http.MethodDelete,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Delete a node and its edges",
		Tags:        []string{"nodes"},
	}, s.handleDeleteNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-connections",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{id}/connections",
		Summary:     "Traverse a node's neighborhood",
		Tags:        []string{"nodes"},
	}, s.handleGetConnections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-edge",
		Method:        http.MethodPost,
		Path:          "/api/v1/edges",
		Summary:       "Create an edge",
		Tags:          []string{"edges"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateEdge)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-edge",
		Method:      http.MethodDelete,
		Path:        "/api/v1/edges/{id}",
		Summary:     "Delete an edge",
		Tags:        []string{"edges"},
	}, s.handleDeleteEdge)
}

type nodeIDInput struct {
	ID string `path:"id"`
}

type nodeOutput struct {
	Body struct {
		Node *store.Node `json:"node"`
	}
}

type successOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

func success() *successOutput {
	out := &successOutput{}
	out.Body.Success = true
	return out
}

type listNodesInput struct {
	Type   string `query:"type" doc:"Filter by node type"`
	Search string `query:"search" doc:"Match title and content"`
	Limit  int    `query:"limit" minimum:"0" maximum:"500" doc:"Page size, default 50"`
	Offset int    `query:"offset" minimum:"0"`
}

type listNodesOutput struct {
	Body struct {
		Nodes []*store.Node `json:"nodes"`
	}
}

func (s *Server) handleListNodes(ctx context.Context, in *listNodesInput) (*listNodesOutput, error) {
	nodeType := store.NodeType(in.Type)
	if nodeType != "" && !nodeType.Valid() {
		return nil, huma.Error400BadRequest("invalid node type: " + in.Type)
	}

	nodes, err := s.svc.Graph.ListNodes(ctx, UserFromContext(ctx), graph.ListOptions{
		Type:   nodeType,
		Search: in.Search,
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, s.apiError("list nodes", err)
	}
	out := &listNodesOutput{}
	out.Body.Nodes = nodes
	return out, nil
}

type createNodeInput struct {
	Body struct {
		Type     string         `json:"type" doc:"Node type"`
		Slug     string         `json:"slug,omitempty" doc:"Defaults to the slugified title"`
		Title    string         `json:"title" minLength:"1"`
		Content  string         `json:"content,omitempty"`
		Summary  string         `json:"summary,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
}

func (s *Server) handleCreateNode(ctx context.Context, in *createNodeInput) (*nodeOutput, error) {
	slug := strings.TrimSpace(in.Body.Slug)
	if slug == "" {
		slug = graph.Slugify(in.Body.Title)
	}

	node, err := s.svc.Graph.CreateNode(ctx, graph.CreateNodeInput{
		UserID:   UserFromContext(ctx),
		Type:     store.NodeType(in.Body.Type),
		Slug:     slug,
		Title:    in.Body.Title,
		Content:  in.Body.Content,
		Summary:  in.Body.Summary,
		Metadata: in.Body.Metadata,
	})
	if err != nil {
		return nil, s.apiError("create node", err)
	}
	out := &nodeOutput{}
	out.Body.Node = node
	return out, nil
}

// ownedNode loads id and hides nodes of other users behind a 404.
func (s *Server) ownedNode(ctx context.Context, id string) (*store.Node, error) {
	node, err := s.svc.Graph.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil || node.UserID != UserFromContext(ctx) {
		return nil, notFound("node", id)
	}
	return node, nil
}

type getNodeOutput struct {
	Body *graph.NodeWithEdges
}

func (s *Server) handleGetNode(ctx context.Context, in *nodeIDInput) (*getNodeOutput, error) {
	if _, err := s.ownedNode(ctx, in.ID); err != nil {
		return nil, s.apiError("get node", err)
	}
	nwe, err := s.svc.Graph.GetNodeWithEdges(ctx, in.ID)
	if err != nil {
		return nil, s.apiError("get node", err)
	}
	if nwe == nil {
		return nil, s.apiError("get node", notFound("node", in.ID))
	}
	return &getNodeOutput{Body: nwe}, nil
}

type updateNodeInput struct {
	ID   string `path:"id"`
	Body struct {
		Type     *string        `json:"type,omitempty"`
		Title    *string        `json:"title,omitempty"`
		Content  *string        `json:"content,omitempty"`
		Summary  *string        `json:"summary,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
}

func (s *Server) handleUpdateNode(ctx context.Context, in *updateNodeInput) (*nodeOutput, error) {
	if _, err := s.ownedNode(ctx, in.ID); err != nil {
		return nil, s.apiError("update node", err)
	}

	upd := store.NodeUpdate{
		Title:    in.Body.Title,
		Content:  in.Body.Content,
		Summary:  in.Body.Summary,
		Metadata: in.Body.Metadata,
	}
	if in.Body.Type != nil {
		t := store.NodeType(*in.Body.Type)
		upd.Type = &t
	}

	node, err := s.svc.Graph.UpdateNode(ctx, in.ID, upd)
	if err != nil {
		return nil, s.apiError("update node", err)
	}
	out := &nodeOutput{}
	out.Body.Node = node
	return out, nil
}

// handleDeleteNode is idempotent: an absent id succeeds. Another user's node
// is reported as not found.
func (s *Server) handleDeleteNode(ctx context.Context, in *nodeIDInput) (*successOutput, error) {
	node, err := s.svc.Graph.GetNode(ctx, in.ID)
	if err != nil {
		return nil, s.apiError("delete node", err)
	}
	if node == nil {
		return success(), nil
	}
	if node.UserID != UserFromContext(ctx) {
		return nil, s.apiError("delete node", notFound("node", in.ID))
	}
	if err := s.svc.Graph.DeleteNode(ctx, in.ID); err != nil {
		return nil, s.apiError("delete node", err)
	}
	return success(), nil
}

type connectionsInput struct {
	ID        string `path:"id"`
	Depth     int    `query:"depth" default:"1" minimum:"1" maximum:"2"`
	Direction string `query:"direction" default:"both" enum:"outgoing,incoming,both"`
}

type connectionsOutput struct {
	Body struct {
		Connections []graph.Connection `json:"connections"`
	}
}

func (s *Server) handleGetConnections(ctx context.Context, in *connectionsInput) (*connectionsOutput, error) {
	if _, err := s.ownedNode(ctx, in.ID); err != nil {
		return nil, s.apiError("get connections", err)
	}
	conns, err := s.svc.Graph.GetConnections(ctx, in.ID, in.Depth, store.Direction(in.Direction))
	if err != nil {
		return nil, s.apiError("get connections", err)
	}
	out := &connectionsOutput{}
	out.Body.Connections = conns
	return out, nil
}

type createEdgeInput struct {
	Body struct {
		SourceID    string         `json:"source_id" minLength:"1"`
		TargetID    string         `json:"target_id" minLength:"1"`
		EdgeType    string         `json:"edge_type"`
		CustomLabel *string        `json:"custom_label,omitempty"`
		Weight      *float64       `json:"weight,omitempty"`
		Summary     string         `json:"summary,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}
}

type edgeOutput struct {
	Body struct {
		Edge *store.Edge `json:"edge"`
	}
}

func (s *Server) handleCreateEdge(ctx context.Context, in *createEdgeInput) (*edgeOutput, error) {
	for _, id := range []string{in.Body.SourceID, in.Body.TargetID} {
		if _, err := s.ownedNode(ctx, id); err != nil {
			return nil, s.apiError("create edge", err)
		}
	}

	edge, err := s.svc.Graph.CreateEdge(ctx, graph.CreateEdgeInput{
		UserID:      UserFromContext(ctx),
		SourceID:    in.Body.SourceID,
		TargetID:    in.Body.TargetID,
		EdgeType:    store.EdgeType(in.Body.EdgeType),
		CustomLabel: in.Body.CustomLabel,
		Weight:      in.Body.Weight,
		Summary:     in.Body.Summary,
		Metadata:    in.Body.Metadata,
	})
	if err != nil {
		return nil, s.apiError("create edge", err)
	}
	out := &edgeOutput{}
	out.Body.Edge = edge
	return out, nil
}

func (s *Server) handleDeleteEdge(ctx context.Context, in *nodeIDInput) (*successOutput, error) {
	edge, err := s.svc.Graph.Store().Edges().GetEdge(ctx, in.ID)
	if store.IsNotFound(err) {
		return success(), nil
	}
	if err != nil {
		return nil, s.apiError("delete edge", err)
	}
	if edge.UserID != UserFromContext(ctx) {
		return nil, s.apiError("delete edge", notFound("edge", in.ID))
	}
	if err := s.svc.Graph.DeleteEdge(ctx, in.ID); err != nil {
		return nil, s.apiError("delete edge", err)
	}
	return success(), nil
}
