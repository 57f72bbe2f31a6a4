// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package store

import moserr "github.com/arc-dev/mos/pkg/errors"

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return moserr.IsNotFound(err)
}

// NodeNotFound builds the error a backend returns for a missing node.
func NodeNotFound(id string) error {
	return moserr.New(moserr.CodeStoreNodeGetNotFound, "node not found", moserr.FieldNodeID(id))
}

// EdgeNotFound builds the error a backend returns for a missing edge.
func EdgeNotFound(id string) error {
	return moserr.New(moserr.CodeStoreEdgeGetNotFound, "edge not found", moserr.FieldEdgeID(id))
}
