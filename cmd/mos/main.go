// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Command mos is the personal knowledge graph CLI and API server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
