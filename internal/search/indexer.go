// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

const indexPageSize = 200

// EmbeddingText is the text embedded for a node.
func EmbeddingText(n *store.Node) string {
	return n.Title + "\n" + n.Summary + "\n" + n.Content
}

// ContentHash is the hex sha256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IndexStats summarizes an IndexUser run.
type IndexStats struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
}

// Indexer keeps node embeddings in step with node text.
type Indexer struct {
	store    store.Store
	embedder provider.Embedder
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexer returns an Indexer. m and logger may be nil.
func NewIndexer(s store.Store, embedder provider.Embedder, m *metrics.Collector, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: s, embedder: embedder, metrics: m, logger: logger, now: time.Now}
}

// IndexNode embeds n unless its stored embedding already has the same
// content hash. It reports whether a new vector was written.
func (ix *Indexer) IndexNode(ctx context.Context, n *store.Node) (bool, error) {
	text := EmbeddingText(n)
	hash := ContentHash(text)

	existing, err := ix.store.Vectors().GetEmbedding(ctx, n.ID, ix.embedder.Model())
	switch {
	case err == nil && existing.ContentHash == hash:
		return false, nil
	case err != nil && !store.IsNotFound(err):
		return false, err
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		ix.metrics.ObserveEmbeddingFailure(ix.embedder.Name())
		return false, moserr.Wrap(err, moserr.CodeSearchIndexFailure, "embedding node",
			moserr.FieldNodeID(n.ID), moserr.FieldProvider(ix.embedder.Name()))
	}

	if err := ix.store.Vectors().PutEmbedding(ctx, &store.Embedding{
		NodeID:      n.ID,
		UserID:      n.UserID,
		Provider:    ix.embedder.Name(),
		Model:       ix.embedder.Model(),
		ContentHash: hash,
		Vector:      vec,
		UpdatedAt:   ix.now().UTC(),
	}); err != nil {
		return false, err
	}
	ix.metrics.ObserveIndexed(1)
	return true, nil
}

// IndexUser walks every node owned by userID, oldest update first, and
// stops at the first error.
func (ix *Indexer) IndexUser(ctx context.Context, userID string) (IndexStats, error) {
	var stats IndexStats
	for offset := 0; ; offset += indexPageSize {
		nodes, err := ix.store.Nodes().ListNodes(ctx, store.NodeQuery{
			UserID:    userID,
			Limit:     indexPageSize,
			Offset:    offset,
			Ascending: true,
		})
		if err != nil {
			return stats, err
		}

		for _, n := range nodes {
			written, err := ix.IndexNode(ctx, n)
			if err != nil {
				return stats, err
			}
			if written {
				stats.Indexed++
			} else {
				stats.Unchanged++
			}
		}

		if len(nodes) < indexPageSize {
			break
		}
	}

	ix.logger.InfoContext(ctx, "embedding index updated",
		slog.String("user_id", userID),
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
	)
	return stats, nil
}
