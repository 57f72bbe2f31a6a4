// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Command openapi-gen writes the OpenAPI document of the mos HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arc-dev/mos/internal/connector/sds"
	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/server"
	"github.com/arc-dev/mos/internal/store/memstore"
	"github.com/arc-dev/mos/internal/suggest"
	"github.com/arc-dev/mos/internal/summarize"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec registers every route against an in-memory graph and
// returns the document huma derives from the handler types. No handler
// runs.
func generateSpec() ([]byte, error) {
	s := memstore.New()
	g := graph.NewEngine(s)
	se := search.New(s)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, &server.Services{
		Graph:      g,
		Search:     se,
		Summarizer: summarize.New(g, se, nil, nil),
		Suggest:    suggest.NewRanker(s),
		Sync:       sds.New(g),
	})
	if err != nil {
		return nil, moserr.Errorf(moserr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
