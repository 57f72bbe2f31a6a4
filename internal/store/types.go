// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

import "time"

// NodeType is the closed set of node kinds.
type NodeType string

const (
	NodeTypeConcept  NodeType = "concept"
	NodeTypePattern  NodeType = "pattern"
	NodeTypeDomain   NodeType = "domain"
	NodeTypePerson   NodeType = "person"
	NodeTypeOrg      NodeType = "org"
	NodeTypeProject  NodeType = "project"
	NodeTypeNote     NodeType = "note"
	NodeTypeArtifact NodeType = "artifact"
)

// NodeTypes lists every NodeType in declaration order.
var NodeTypes = []NodeType{
	NodeTypeConcept, NodeTypePattern, NodeTypeDomain, NodeTypePerson,
	NodeTypeOrg, NodeTypeProject, NodeTypeNote, NodeTypeArtifact,
}

// EdgeType is the closed set of relationship kinds.
type EdgeType string

const (
	EdgeTypeRelatedTo   EdgeType = "related_to"
	EdgeTypeUsedIn      EdgeType = "used_in"
	EdgeTypePracticedAt EdgeType = "practiced_at"
	EdgeTypeKnows       EdgeType = "knows"
	EdgeTypePreparedFor EdgeType = "prepared_for"
	EdgeTypeWorksAt     EdgeType = "works_at"
	EdgeTypeAuthored    EdgeType = "authored"
	EdgeTypeRead        EdgeType = "read"
	EdgeTypeConnectedTo EdgeType = "connected_to"
	EdgeTypeDependsOn   EdgeType = "depends_on"
	EdgeTypePartOf      EdgeType = "part_of"
	EdgeTypeCustom      EdgeType = "custom"
)

// EdgeTypes lists every EdgeType in declaration order.
var EdgeTypes = []EdgeType{
	EdgeTypeRelatedTo, EdgeTypeUsedIn, EdgeTypePracticedAt, EdgeTypeKnows,
	EdgeTypePreparedFor, EdgeTypeWorksAt, EdgeTypeAuthored, EdgeTypeRead,
	EdgeTypeConnectedTo, EdgeTypeDependsOn, EdgeTypePartOf, EdgeTypeCustom,
}

// SourceType identifies what kind of external item a ledger entry records.
type SourceType string

const (
	SourceTypeSession SourceType = "session"
	SourceTypeConcept SourceType = "concept"
	SourceTypeEdge    SourceType = "edge"
	SourceTypePattern SourceType = "pattern"
)

// Direction selects which incident edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Node is a single item in a user's knowledge graph.
// Content and Summary are empty when absent.
type Node struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      NodeType       `json:"type"`
	Slug      string         `json:"slug"`
	Title     string         `json:"title"`
	Content   string         `json:"content,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NodeRef is the lightweight projection of a node used in detail views.
type NodeRef struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Type  NodeType `json:"type"`
	Slug  string   `json:"slug"`
}

// Ref returns the NodeRef projection of n.
func (n *Node) Ref() NodeRef {
	return NodeRef{ID: n.ID, Title: n.Title, Type: n.Type, Slug: n.Slug}
}

// NodeUpdate carries a partial node update. Nil fields are left unchanged;
// a pointer to an empty string clears Content or Summary.
type NodeUpdate struct {
	Type     *NodeType
	Title    *string
	Content  *string
	Summary  *string
	Metadata map[string]any
}

// NodeQuery filters a node scan. A Limit of zero means no limit.
type NodeQuery struct {
	UserID    string
	Type      NodeType
	Search    string
	Limit     int
	Offset    int
	Ascending bool // order by updated_at ascending instead of descending
}

// Edge is a directed, typed relationship between two nodes of the same user.
// CustomLabel is set only for EdgeTypeCustom.
type Edge struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	SourceID    string         `json:"source_id"`
	TargetID    string         `json:"target_id"`
	EdgeType    EdgeType       `json:"edge_type"`
	CustomLabel *string        `json:"custom_label"`
	Weight      float64        `json:"weight"`
	Summary     string         `json:"summary,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EdgeQuery filters an edge scan.
type EdgeQuery struct {
	UserID   string
	EdgeType EdgeType
}

// LedgerEntry records that an external item was materialized into the graph.
// MosNodeID points at the node or edge that was produced.
type LedgerEntry struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	MosNodeID  string     `json:"mos_node_id"`
	SourceType SourceType `json:"source_type"`
	SourceKey  string     `json:"source_key"`
	SyncedAt   time.Time  `json:"synced_at"`
}

// Embedding is the stored vector for a node under one embedding model.
type Embedding struct {
	NodeID      string
	UserID      string
	Provider    string
	Model       string
	ContentHash string
	Vector      []float32
	UpdatedAt   time.Time
}

// VectorMatch is a nearest-neighbor hit. Similarity is cosine similarity.
type VectorMatch struct {
	NodeID     string
	Similarity float64
}
