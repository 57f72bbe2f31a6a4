// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a single SQLite database. Full-text
// search needs the binary built with the sqlite_fts5 tag.
type Store struct {
	db         *sql.DB
	dimensions int
}

// Open opens (or creates) the database at dbPath and applies the schema.
// Embeddings must have exactly dimensions components when dimensions > 0.
func Open(dbPath string, dimensions int) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "migrating sqlite db: %w", err)
	}

	return &Store{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB) error {
	ddl := `
CREATE TABLE IF NOT EXISTS nodes (
	rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT UNIQUE NOT NULL,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL CHECK (type IN (` + sqlList(store.NodeTypes) + `)),
	slug       TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT,
	summary    TEXT,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(user_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_nodes_user_type ON nodes(user_id, type);
CREATE INDEX IF NOT EXISTS idx_nodes_user_updated ON nodes(user_id, updated_at);

CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
	title,
	content,
	summary,
	content='nodes',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS nodes_ai AFTER INSERT ON nodes BEGIN
	INSERT INTO nodes_fts(rowid, title, content, summary) VALUES (new.rowid, new.title, new.content, new.summary);
END;

CREATE TRIGGER IF NOT EXISTS nodes_ad AFTER DELETE ON nodes BEGIN
	INSERT INTO nodes_fts(nodes_fts, rowid, title, content, summary) VALUES ('delete', old.rowid, old.title, old.content, old.summary);
END;

CREATE TRIGGER IF NOT EXISTS nodes_au AFTER UPDATE ON nodes BEGIN
	INSERT INTO nodes_fts(nodes_fts, rowid, title, content, summary) VALUES ('delete', old.rowid, old.title, old.content, old.summary);
	INSERT INTO nodes_fts(rowid, title, content, summary) VALUES (new.rowid, new.title, new.content, new.summary);
END;

CREATE TABLE IF NOT EXISTS edges (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	source_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	target_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	edge_type    TEXT NOT NULL CHECK (edge_type IN (` + sqlList(store.EdgeTypes) + `)),
	custom_label TEXT,
	weight       REAL NOT NULL DEFAULT 1.0,
	summary      TEXT,
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL,
	CHECK (source_id <> target_id),
	CHECK ((edge_type = 'custom') = (custom_label IS NOT NULL AND custom_label <> ''))
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_user_type ON edges(user_id, edge_type);

CREATE TABLE IF NOT EXISTS node_embeddings (
	node_id      TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	user_id      TEXT NOT NULL,
	provider     TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	dims         INTEGER NOT NULL,
	embedding    BLOB NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (node_id, model)
);

CREATE INDEX IF NOT EXISTS idx_node_embeddings_user ON node_embeddings(user_id);

CREATE TABLE IF NOT EXISTS sync_ledger (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	mos_node_id TEXT NOT NULL,
	source_type TEXT NOT NULL CHECK (source_type IN ('session', 'concept', 'edge', 'pattern')),
	source_key  TEXT NOT NULL,
	synced_at   TEXT NOT NULL,
	UNIQUE(session_id, source_type, source_key)
);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Nodes() store.NodeStore     { return &nodeStore{db: s.db} }
func (s *Store) Edges() store.EdgeStore     { return &edgeStore{db: s.db} }
func (s *Store) Vectors() store.VectorStore { return &vectorStore{db: s.db, dimensions: s.dimensions} }
func (s *Store) Ledger() store.LedgerStore  { return &ledgerStore{db: s.db} }

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	p := strings.Repeat("?,", n)
	return p[:len(p)-1]
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func sqlList[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + string(v) + "'"
	}
	return strings.Join(quoted, ", ")
}

// limitArg maps "no limit" to SQLite's -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// constraintError maps SQLite constraint violations to invalid-input or
// conflict codes. Other errors are reported as database failures.
func constraintError(err error, invalid moserr.Code, format string, args ...any) error {
	args = append(args, err)
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return moserr.Errorf(moserr.CodeStoreConflict, format+": %w", args...)
		default:
			return moserr.Errorf(invalid, format+": %w", args...)
		}
	}
	return moserr.Errorf(moserr.CodeStoreDatabaseFailure, format+": %w", args...)
}
