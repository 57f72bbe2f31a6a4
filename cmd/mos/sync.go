// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/connector/sds"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync an evaluated SDS session into the graph",
		Long: "Reads a session and its evaluation from JSON files and records the session,\n" +
			"the components it covered and practiced_at edges. Re-running is safe.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessionPath, _ := cmd.Flags().GetString("session")
			evalPath, _ := cmd.Flags().GetString("evaluation")

			var (
				session    sds.Session
				evaluation sds.Evaluation
			)
			if err := readJSON(sessionPath, &session); err != nil {
				return err
			}
			if err := readJSON(evalPath, &evaluation); err != nil {
				return err
			}
			if session.UserID == "" {
				session.UserID = userID(cmd)
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				result, err := app.Sync.Sync(ctx, session, evaluation)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().String("session", "", "session JSON file")
	cmd.Flags().String("evaluation", "", "evaluation JSON file")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("evaluation")
	return cmd
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return moserr.Errorf(moserr.CodeCLIInputInvalid, "reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return moserr.Errorf(moserr.CodeCLIInputInvalid, "parsing %s: %w", path, err)
	}
	return nil
}
