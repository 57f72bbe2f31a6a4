// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

var _ store.VectorStore = (*vectorStore)(nil)

// vectorStore keeps one normalized embedding per (node, model) in a plain
// table and ranks with sqlite-vec's vec_distance_cosine. A vec0 virtual
// table would force a single dimension and cannot filter by user before
// the k-nearest cut.
type vectorStore struct {
	db         *sql.DB
	dimensions int
}

func (v *vectorStore) checkDims(nodeID string, n int) error {
	if v.dimensions > 0 && n != v.dimensions {
		return moserr.New(moserr.CodeStoreEmbeddingWriteInvalid, "embedding dimension mismatch",
			moserr.FieldNodeID(nodeID), moserr.Field("want", v.dimensions), moserr.Field("got", n))
	}
	return nil
}

func (v *vectorStore) PutEmbedding(ctx context.Context, emb *store.Embedding) error {
	if err := emb.Validate(); err != nil {
		return err
	}
	if err := v.checkDims(emb.NodeID, len(emb.Vector)); err != nil {
		return err
	}

	blob, err := sqlite_vec.SerializeFloat32(store.Normalize(emb.Vector))
	if err != nil {
		return moserr.Errorf(moserr.CodeStoreEmbeddingWriteInvalid, "serializing embedding: %w", err)
	}

	updated := emb.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	const q = `INSERT INTO node_embeddings (node_id, user_id, provider, model, content_hash, dims, embedding, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(node_id, model) DO UPDATE SET
	user_id = excluded.user_id,
	provider = excluded.provider,
	content_hash = excluded.content_hash,
	dims = excluded.dims,
	embedding = excluded.embedding,
	updated_at = excluded.updated_at`

	_, err = v.db.ExecContext(ctx, q,
		emb.NodeID, emb.UserID, emb.Provider, emb.Model, emb.ContentHash,
		len(emb.Vector), blob, formatTime(updated),
	)
	if err != nil {
		return constraintError(err, moserr.CodeStoreEmbeddingWriteInvalid, "storing embedding for node %s", emb.NodeID)
	}
	return nil
}

func (v *vectorStore) GetEmbedding(ctx context.Context, nodeID, model string) (*store.Embedding, error) {
	const q = `SELECT node_id, user_id, provider, model, content_hash, embedding, updated_at
FROM node_embeddings WHERE node_id = ? AND model = ?`

	var (
		emb       store.Embedding
		blob      []byte
		updatedAt string
	)
	err := v.db.QueryRowContext(ctx, q, nodeID, model).Scan(
		&emb.NodeID, &emb.UserID, &emb.Provider, &emb.Model, &emb.ContentHash, &blob, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, moserr.New(moserr.CodeStoreEmbeddingGetNotFound, "embedding not found", moserr.FieldNodeID(nodeID))
	}
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting embedding for node %s: %w", nodeID, err)
	}

	emb.Vector = deserializeFloat32(blob)
	emb.UpdatedAt = parseTime(updatedAt)
	return &emb, nil
}

func (v *vectorStore) NearestNodes(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]store.VectorMatch, error) {
	if len(query) == 0 {
		return nil, moserr.New(moserr.CodeStoreInvalidInput, "query vector is empty")
	}
	if err := v.checkDims("", len(query)); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(store.Normalize(query))
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreInvalidInput, "serializing query vector: %w", err)
	}

	const q = `SELECT node_id, MAX(1.0 - vec_distance_cosine(embedding, ?)) AS similarity
FROM node_embeddings
WHERE user_id = ? AND dims = ?
GROUP BY node_id
HAVING similarity > ?
ORDER BY similarity DESC, node_id ASC
LIMIT ?`

	rows, err := v.db.QueryContext(ctx, q, blob, userID, len(query), threshold, limitArg(limit))
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "searching embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]store.VectorMatch, 0)
	for rows.Next() {
		var m store.VectorMatch
		if err := rows.Scan(&m.NodeID, &m.Similarity); err != nil {
			return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "scanning embedding match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "iterating embedding matches: %w", err)
	}
	return matches, nil
}

func (v *vectorStore) DeleteEmbeddings(ctx context.Context, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	q := `DELETE FROM node_embeddings WHERE node_id IN (` + placeholders(len(nodeIDs)) + `)`
	if _, err := v.db.ExecContext(ctx, q, stringArgs(nodeIDs)...); err != nil {
		return moserr.Errorf(moserr.CodeStoreDatabaseFailure, "deleting embeddings: %w", err)
	}
	return nil
}

// deserializeFloat32 reverses sqlite_vec.SerializeFloat32 (little-endian).
func deserializeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
