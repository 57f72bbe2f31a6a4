// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend          string // "sqlite" or "memory"; empty means "sqlite".
	Path             string // Data directory for file-backed backends.
	VectorDimensions int    // Embedding dimensions; 0 uses the default (1536).
}
