// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// DBFile is the database file name created under the storage path.
const DBFile = "mos.db"

func init() {
	store.RegisterBackend("sqlite", newStore)
}

func newStore(cfg *store.StorageConfig) (store.Store, error) {
	dir := cfg.Path
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, moserr.Errorf(moserr.CodeStoreDatabaseFailure, "creating storage directory %s: %w", dir, err)
	}
	return Open(filepath.Join(dir, DBFile), cfg.VectorDimensions)
}
