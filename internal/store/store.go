// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

import (
	"context"
	"time"
)

// Store groups the per-concern stores of one backend.
type Store interface {
	Nodes() NodeStore
	Edges() EdgeStore
	Vectors() VectorStore
	Ledger() LedgerStore
	Close() error
}

// NodeStore manages graph nodes. Point lookups return a not-found coded
// error when the node is absent.
type NodeStore interface {
	// UpsertNode inserts node or, when (user_id, slug) already exists,
	// overwrites its mutable fields. ID and CreatedAt of an existing row are kept.
	UpsertNode(ctx context.Context, node *Node) (*Node, error)
	UpdateNode(ctx context.Context, id string, upd NodeUpdate, now time.Time) (*Node, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	GetNodeBySlug(ctx context.Context, userID, slug string) (*Node, error)
	// GetNodes batch-fetches nodes by id. Unknown ids are skipped.
	GetNodes(ctx context.Context, ids []string) ([]*Node, error)
	ListNodes(ctx context.Context, q NodeQuery) ([]*Node, error)
	// SearchNodes runs a full-text query and returns hits in relevance order.
	SearchNodes(ctx context.Context, userID, query string, limit int) ([]*Node, error)
	// DeleteNode removes the node and every edge that references it.
	// Deleting an unknown id is not an error.
	DeleteNode(ctx context.Context, id string) error
}

// EdgeStore manages graph edges. Edges are insert-only.
type EdgeStore interface {
	CreateEdge(ctx context.Context, edge *Edge) (*Edge, error)
	GetEdge(ctx context.Context, id string) (*Edge, error)
	DeleteEdge(ctx context.Context, id string) error
	// EdgesFrom returns edges whose source is one of nodeIDs.
	EdgesFrom(ctx context.Context, nodeIDs []string) ([]*Edge, error)
	// EdgesTo returns edges whose target is one of nodeIDs.
	EdgesTo(ctx context.Context, nodeIDs []string) ([]*Edge, error)
	ListEdges(ctx context.Context, q EdgeQuery) ([]*Edge, error)
}

// VectorStore manages node embeddings and similarity search.
type VectorStore interface {
	PutEmbedding(ctx context.Context, emb *Embedding) error
	GetEmbedding(ctx context.Context, nodeID, model string) (*Embedding, error)
	// NearestNodes returns up to limit nodes of userID whose cosine similarity
	// to query exceeds threshold, most similar first.
	NearestNodes(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]VectorMatch, error)
	DeleteEmbeddings(ctx context.Context, nodeIDs []string) error
}

// LedgerStore records which external items have been synced.
type LedgerStore interface {
	// Record inserts entry unless (session_id, source_type, source_key)
	// already exists. It reports whether a new row was written.
	Record(ctx context.Context, entry *LedgerEntry) (bool, error)
	Get(ctx context.Context, sessionID string, sourceType SourceType, sourceKey string) (*LedgerEntry, error)
	Exists(ctx context.Context, sessionID string, sourceType SourceType, sourceKey string) (bool, error)
	ListSession(ctx context.Context, sessionID string) ([]*LedgerEntry, error)
}
