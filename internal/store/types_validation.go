// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

import (
	"strings"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeConcept, NodeTypePattern, NodeTypeDomain, NodeTypePerson,
		NodeTypeOrg, NodeTypeProject, NodeTypeNote, NodeTypeArtifact:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeRelatedTo, EdgeTypeUsedIn, EdgeTypePracticedAt, EdgeTypeKnows,
		EdgeTypePreparedFor, EdgeTypeWorksAt, EdgeTypeAuthored, EdgeTypeRead,
		EdgeTypeConnectedTo, EdgeTypeDependsOn, EdgeTypePartOf, EdgeTypeCustom:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known ledger source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeSession, SourceTypeConcept, SourceTypeEdge, SourceTypePattern:
		return true
	default:
		return false
	}
}

// Valid reports whether d is a known traversal direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	default:
		return false
	}
}

// Validate checks the fields every stored node must carry.
func (n Node) Validate() error {
	if n.UserID == "" {
		return moserr.New(moserr.CodeStoreNodeWriteInvalid, "node: UserID is required")
	}
	if !n.Type.Valid() {
		return moserr.Errorf(moserr.CodeStoreNodeWriteInvalid, "node: invalid type %q", n.Type)
	}
	if n.Slug == "" {
		return moserr.New(moserr.CodeStoreNodeWriteInvalid, "node: Slug is required", moserr.FieldUserID(n.UserID))
	}
	if strings.TrimSpace(n.Title) == "" {
		return moserr.New(moserr.CodeStoreNodeWriteInvalid, "node: Title is required", moserr.FieldSlug(n.Slug))
	}
	return nil
}

// Validate checks the edge invariants: known type, no self edges, and a
// custom label present exactly when the type is custom.
func (e Edge) Validate() error {
	if e.UserID == "" {
		return moserr.New(moserr.CodeStoreEdgeCreateInvalid, "edge: UserID is required")
	}
	if e.SourceID == "" || e.TargetID == "" {
		return moserr.New(moserr.CodeStoreEdgeCreateInvalid, "edge: SourceID and TargetID are required")
	}
	if e.SourceID == e.TargetID {
		return moserr.New(moserr.CodeStoreEdgeCreateInvalid, "edge: self edges are not allowed", moserr.FieldNodeID(e.SourceID))
	}
	if !e.EdgeType.Valid() {
		return moserr.Errorf(moserr.CodeStoreEdgeCreateInvalid, "edge: invalid edge type %q", e.EdgeType)
	}
	if e.EdgeType == EdgeTypeCustom {
		if e.CustomLabel == nil || strings.TrimSpace(*e.CustomLabel) == "" {
			return moserr.New(moserr.CodeStoreEdgeCreateInvalid, "edge: custom edges require a custom_label")
		}
	} else if e.CustomLabel != nil {
		return moserr.Errorf(moserr.CodeStoreEdgeCreateInvalid, "edge: custom_label is only allowed on custom edges, got type %q", e.EdgeType)
	}
	return nil
}

// Validate checks that the ledger entry is complete.
func (l LedgerEntry) Validate() error {
	if l.SessionID == "" {
		return moserr.New(moserr.CodeStoreLedgerRecordInvalid, "ledger: SessionID is required")
	}
	if !l.SourceType.Valid() {
		return moserr.Errorf(moserr.CodeStoreLedgerRecordInvalid, "ledger: invalid source type %q", l.SourceType)
	}
	if l.SourceKey == "" {
		return moserr.New(moserr.CodeStoreLedgerRecordInvalid, "ledger: SourceKey is required")
	}
	if l.MosNodeID == "" {
		return moserr.New(moserr.CodeStoreLedgerRecordInvalid, "ledger: MosNodeID is required")
	}
	return nil
}

// Validate checks that the embedding can be stored.
func (e Embedding) Validate() error {
	if e.NodeID == "" || e.UserID == "" {
		return moserr.New(moserr.CodeStoreEmbeddingWriteInvalid, "embedding: NodeID and UserID are required")
	}
	if e.Model == "" {
		return moserr.New(moserr.CodeStoreEmbeddingWriteInvalid, "embedding: Model is required", moserr.FieldNodeID(e.NodeID))
	}
	if len(e.Vector) == 0 {
		return moserr.New(moserr.CodeStoreEmbeddingWriteInvalid, "embedding: Vector is empty", moserr.FieldNodeID(e.NodeID))
	}
	return nil
}
