// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

import (
	"sort"
	"sync"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// DefaultVectorDimensions matches OpenAI text-embedding-3-small.
const DefaultVectorDimensions = 1536

// Factory opens a Store for a backend.
type Factory func(cfg *StorageConfig) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the Store for the configured backend.
func Open(cfg *StorageConfig) (Store, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, moserr.Errorf(moserr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	resolved := *cfg
	resolved.Backend = backend
	if resolved.VectorDimensions <= 0 {
		resolved.VectorDimensions = DefaultVectorDimensions
	}

	return factory(&resolved)
}
