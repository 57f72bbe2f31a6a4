// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

var _ store.EdgeStore = (*edgeStore)(nil)

type edgeStore struct {
	db *sql.DB
}

const edgeColumns = `id, user_id, source_id, target_id, edge_type, custom_label, weight, summary, metadata, created_at`

// CreateEdge inserts a new edge. Missing endpoints surface as invalid input
// through the foreign keys.
func (e *edgeStore) CreateEdge(ctx context.Context, edge *store.Edge) (*store.Edge, error) {
	if err := edge.Validate(); err != nil {
		return nil, err
	}

	metadata, err := marshalMetadata(edge.Metadata)
	if err != nil {
		return nil, err
	}

	id := edge.ID
	if id == "" {
		id = uuid.NewString()
	}

	var label sql.NullString
	if edge.CustomLabel != nil {
		label = sql.NullString{String: *edge.CustomLabel, Valid: true}
	}

	const q = `INSERT INTO edges (` + edgeColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + edgeColumns

	stored, err := scanEdge(e.db.QueryRowContext(ctx, q,
		id,
		edge.UserID,
		edge.SourceID,
		edge.TargetID,
		string(edge.EdgeType),
		label,
		edge.Weight,
		nullString(edge.Summary),
		metadata,
		formatTime(edge.CreatedAt),
	))
	if err != nil {
		return nil, constraintError(err, moserr.CodeStoreEdgeCreateInvalid, "creating edge %s -> %s", edge.SourceID, edge.TargetID)
	}
	return stored, nil
}

func (e *edgeStore) GetEdge(ctx context.Context, id string) (*store.Edge, error) {
	edge, err := scanEdge(e.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.EdgeNotFound(id)
	}
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting edge %s: %w", id, err)
	}
	return edge, nil
}

func (e *edgeStore) DeleteEdge(ctx context.Context, id string) error {
	if _, err := e.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id); err != nil {
		return moserr.Errorf(moserr.CodeStoreDatabaseFailure, "deleting edge %s: %w", id, err)
	}
	return nil
}

func (e *edgeStore) EdgesFrom(ctx context.Context, nodeIDs []string) ([]*store.Edge, error) {
	return e.incident(ctx, "source_id", nodeIDs)
}

func (e *edgeStore) EdgesTo(ctx context.Context, nodeIDs []string) ([]*store.Edge, error) {
	return e.incident(ctx, "target_id", nodeIDs)
}

func (e *edgeStore) incident(ctx context.Context, column string, nodeIDs []string) ([]*store.Edge, error) {
	if len(nodeIDs) == 0 {
		return []*store.Edge{}, nil
	}

	q := `SELECT ` + edgeColumns + ` FROM edges
WHERE ` + column + ` IN (` + placeholders(len(nodeIDs)) + `)
ORDER BY created_at ASC, rowid ASC`

	rows, err := e.db.QueryContext(ctx, q, stringArgs(nodeIDs)...)
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "querying edges by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	return scanEdges(rows)
}

func (e *edgeStore) ListEdges(ctx context.Context, q store.EdgeQuery) ([]*store.Edge, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.EdgeType != "" {
		where = append(where, "edge_type = ?")
		args = append(args, string(q.EdgeType))
	}

	query := `SELECT ` + edgeColumns + ` FROM edges`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "listing edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEdges(rows)
}

func scanEdge(row rowScanner) (*store.Edge, error) {
	var (
		edge           store.Edge
		label, summary sql.NullString
		metaJSON       string
		createdAt      string
	)
	if err := row.Scan(
		&edge.ID,
		&edge.UserID,
		&edge.SourceID,
		&edge.TargetID,
		&edge.EdgeType,
		&label,
		&edge.Weight,
		&summary,
		&metaJSON,
		&createdAt,
	); err != nil {
		return nil, err
	}

	if label.Valid {
		l := label.String
		edge.CustomLabel = &l
	}
	edge.Summary = summary.String
	edge.CreatedAt = parseTime(createdAt)

	metadata, err := unmarshalMetadata(metaJSON)
	if err != nil {
		return nil, err
	}
	edge.Metadata = metadata
	return &edge, nil
}

func scanEdges(rows *sql.Rows) ([]*store.Edge, error) {
	edges := make([]*store.Edge, 0)
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "scanning edge row: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "iterating edge rows: %w", err)
	}
	return edges, nil
}
