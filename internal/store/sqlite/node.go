// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

var _ store.NodeStore = (*nodeStore)(nil)

type nodeStore struct {
	db *sql.DB
}

const nodeColumns = `id, user_id, type, slug, title, content, summary, metadata, created_at, updated_at`

// UpsertNode inserts the node or updates the row already holding
// (user_id, slug). The returned node reflects what is stored.
func (n *nodeStore) UpsertNode(ctx context.Context, node *store.Node) (*store.Node, error) {
	if err := node.Validate(); err != nil {
		return nil, err
	}

	metadata, err := marshalMetadata(node.Metadata)
	if err != nil {
		return nil, err
	}

	id := node.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := node.CreatedAt
	if created.IsZero() {
		created = node.UpdatedAt
	}

	const q = `INSERT INTO nodes (` + nodeColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, slug) DO UPDATE SET
	type = excluded.type,
	title = excluded.title,
	content = excluded.content,
	summary = excluded.summary,
	metadata = excluded.metadata,
	updated_at = excluded.updated_at
RETURNING ` + nodeColumns

	row := n.db.QueryRowContext(ctx, q,
		id,
		node.UserID,
		string(node.Type),
		node.Slug,
		node.Title,
		nullString(node.Content),
		nullString(node.Summary),
		metadata,
		formatTime(created),
		formatTime(node.UpdatedAt),
	)
	stored, err := scanNode(row)
	if err != nil {
		return nil, constraintError(err, moserr.CodeStoreNodeWriteInvalid, "upserting node %s", node.Slug)
	}
	return stored, nil
}

func (n *nodeStore) UpdateNode(ctx context.Context, id string, upd store.NodeUpdate, now time.Time) (*store.Node, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}

	if upd.Type != nil {
		if !upd.Type.Valid() {
			return nil, moserr.Errorf(moserr.CodeStoreNodeWriteInvalid, "node: invalid type %q", *upd.Type)
		}
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, moserr.New(moserr.CodeStoreNodeWriteInvalid, "node: Title must not be empty", moserr.FieldNodeID(id))
		}
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, nullString(*upd.Content))
	}
	if upd.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, nullString(*upd.Summary))
	}
	if upd.Metadata != nil {
		metadata, err := marshalMetadata(upd.Metadata)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, metadata)
	}
	args = append(args, id)

	q := `UPDATE nodes SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + nodeColumns
	updated, err := scanNode(n.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, moserr.New(moserr.CodeStoreNodeUpdateNotFound, "node not found", moserr.FieldNodeID(id))
	}
	if err != nil {
		return nil, constraintError(err, moserr.CodeStoreNodeWriteInvalid, "updating node %s", id)
	}
	return updated, nil
}

func (n *nodeStore) GetNode(ctx context.Context, id string) (*store.Node, error) {
	node, err := scanNode(n.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NodeNotFound(id)
	}
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting node %s: %w", id, err)
	}
	return node, nil
}

func (n *nodeStore) GetNodeBySlug(ctx context.Context, userID, slug string) (*store.Node, error) {
	node, err := scanNode(n.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE user_id = ? AND slug = ?`, userID, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, moserr.New(moserr.CodeStoreNodeGetNotFound, "node not found", moserr.FieldUserID(userID), moserr.FieldSlug(slug))
	}
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting node by slug %s: %w", slug, err)
	}
	return node, nil
}

func (n *nodeStore) GetNodes(ctx context.Context, ids []string) ([]*store.Node, error) {
	if len(ids) == 0 {
		return []*store.Node{}, nil
	}

	q := `SELECT ` + nodeColumns + ` FROM nodes WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := n.db.QueryContext(ctx, q, stringArgs(ids)...)
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}

	// Preserve the caller's id order.
	byID := make(map[string]*store.Node, len(found))
	for _, node := range found {
		byID[node.ID] = node
	}
	out := make([]*store.Node, 0, len(found))
	for _, id := range ids {
		if node, ok := byID[id]; ok {
			out = append(out, node)
			delete(byID, id)
		}
	}
	return out, nil
}

func (n *nodeStore) ListNodes(ctx context.Context, q store.NodeQuery) ([]*store.Node, error) {
	var (
		where []string
		args  []any
	)
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + nodeColumns + ` FROM nodes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if q.Ascending {
		query += ` ORDER BY updated_at ASC, id ASC`
	} else {
		query += ` ORDER BY updated_at DESC, id ASC`
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limitArg(q.Limit), q.Offset)

	rows, err := n.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "listing nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanNodes(rows)
}

// SearchNodes ranks FTS5 matches with bm25, weighting title over content
// over summary. Query text is reduced to quoted terms so user input never
// reaches the FTS5 query parser as syntax.
func (n *nodeStore) SearchNodes(ctx context.Context, userID, query string, limit int) ([]*store.Node, error) {
	match := sanitizeFTS(query)
	if match == "" {
		return []*store.Node{}, nil
	}

	const q = `SELECT n.id, n.user_id, n.type, n.slug, n.title, n.content, n.summary, n.metadata, n.created_at, n.updated_at
FROM nodes_fts
JOIN nodes n ON n.rowid = nodes_fts.rowid
WHERE nodes_fts MATCH ? AND n.user_id = ?
ORDER BY bm25(nodes_fts, 10.0, 5.0, 1.0), n.updated_at DESC, n.id ASC
LIMIT ?`

	rows, err := n.db.QueryContext(ctx, q, match, userID, limitArg(limit))
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "searching nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanNodes(rows)
}

// DeleteNode removes the node. Edges and embeddings go with it through
// ON DELETE CASCADE.
func (n *nodeStore) DeleteNode(ctx context.Context, id string) error {
	if _, err := n.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return moserr.Errorf(moserr.CodeStoreDatabaseFailure, "deleting node %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*store.Node, error) {
	var (
		node               store.Node
		content, summary   sql.NullString
		metaJSON           string
		createdAt, updated string
	)
	if err := row.Scan(
		&node.ID,
		&node.UserID,
		&node.Type,
		&node.Slug,
		&node.Title,
		&content,
		&summary,
		&metaJSON,
		&createdAt,
		&updated,
	); err != nil {
		return nil, err
	}

	node.Content = content.String
	node.Summary = summary.String
	node.CreatedAt = parseTime(createdAt)
	node.UpdatedAt = parseTime(updated)

	metadata, err := unmarshalMetadata(metaJSON)
	if err != nil {
		return nil, err
	}
	node.Metadata = metadata
	return &node, nil
}

func scanNodes(rows *sql.Rows) ([]*store.Node, error) {
	nodes := make([]*store.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "scanning node row: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "iterating node rows: %w", err)
	}
	return nodes, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", moserr.Errorf(moserr.CodeStoreInvalidInput, "marshalling metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" || s == "{}" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "unmarshalling metadata: %w", err)
	}
	return m, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// sanitizeFTS turns free text into an FTS5 query of quoted terms that
// must all match.
func sanitizeFTS(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, term := range terms {
		terms[i] = `"` + term + `"`
	}
	return strings.Join(terms, " ")
}
