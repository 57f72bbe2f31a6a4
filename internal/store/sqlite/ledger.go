// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

var _ store.LedgerStore = (*ledgerStore)(nil)

type ledgerStore struct {
	db *sql.DB
}

const ledgerColumns = `id, session_id, mos_node_id, source_type, source_key, synced_at`

// Record relies on the unique key to arbitrate concurrent writers: exactly
// one insert for a (session, type, key) triple returns a row.
func (l *ledgerStore) Record(ctx context.Context, entry *store.LedgerEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	synced := entry.SyncedAt
	if synced.IsZero() {
		synced = time.Now()
	}

	const q = `INSERT INTO sync_ledger (` + ledgerColumns + `)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, source_type, source_key) DO NOTHING
RETURNING id`

	var inserted string
	err := l.db.QueryRowContext(ctx, q,
		id, entry.SessionID, entry.MosNodeID, string(entry.SourceType), entry.SourceKey, formatTime(synced),
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, constraintError(err, moserr.CodeStoreLedgerRecordInvalid, "recording ledger entry %s", entry.SourceKey)
	}
	return true, nil
}

func (l *ledgerStore) Get(ctx context.Context, sessionID string, sourceType store.SourceType, sourceKey string) (*store.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM sync_ledger
WHERE session_id = ? AND source_type = ? AND source_key = ?`

	entry, err := scanLedgerEntry(l.db.QueryRowContext(ctx, q, sessionID, string(sourceType), sourceKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, moserr.New(moserr.CodeStoreLedgerGetNotFound, "ledger entry not found",
			moserr.FieldSessionID(sessionID), moserr.Field("source_key", sourceKey))
	}
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "getting ledger entry %s: %w", sourceKey, err)
	}
	return entry, nil
}

func (l *ledgerStore) Exists(ctx context.Context, sessionID string, sourceType store.SourceType, sourceKey string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM sync_ledger WHERE session_id = ? AND source_type = ? AND source_key = ?)`

	var exists bool
	if err := l.db.QueryRowContext(ctx, q, sessionID, string(sourceType), sourceKey).Scan(&exists); err != nil {
		return false, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "checking ledger entry %s: %w", sourceKey, err)
	}
	return exists, nil
}

func (l *ledgerStore) ListSession(ctx context.Context, sessionID string) ([]*store.LedgerEntry, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM sync_ledger
WHERE session_id = ?
ORDER BY synced_at ASC, rowid ASC`

	rows, err := l.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "listing ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*store.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "scanning ledger row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "iterating ledger rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row rowScanner) (*store.LedgerEntry, error) {
	var (
		entry    store.LedgerEntry
		syncedAt string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.MosNodeID,
		&entry.SourceType,
		&entry.SourceKey,
		&syncedAt,
	); err != nil {
		return nil, err
	}
	entry.SyncedAt = parseTime(syncedAt)
	return &entry, nil
}
