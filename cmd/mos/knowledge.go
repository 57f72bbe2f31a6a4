// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/search"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes by meaning and keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")
			limit, _ := cmd.Flags().GetInt("limit")
			if mode != "hybrid" && mode != "keyword" {
				return moserr.Errorf(moserr.CodeCLIInputInvalid, "unknown search mode %q", mode)
			}
			query := strings.Join(args, " ")

			return withApp(cmd, func(ctx context.Context, app *App) error {
				var (
					results []search.Result
					err     error
				)
				if mode == "keyword" {
					results, err = app.Search.SearchNodes(ctx, query, userID(cmd), limit)
				} else {
					results, err = app.Search.HybridSearch(ctx, query, userID(cmd), limit)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(results) == 0 {
					_, err := fmt.Fprintln(out, "No matching nodes.")
					return err
				}
				for _, r := range results {
					if _, err := fmt.Fprintf(out, "%.3f\t%-7s\t%s (%s)\t%s\n",
						r.Score, r.Source, r.Node.Title, r.Node.Type, r.Node.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("mode", "hybrid", "hybrid or keyword")
	cmd.Flags().IntP("limit", "n", 0, "maximum results (default from config)")
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <topic>",
		Short: "Summarize what the graph knows about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				sum, err := app.requireSummarizer()
				if err != nil {
					return err
				}
				answer, err := sum.WhatDoIKnow(ctx, userID(cmd), strings.Join(args, " "))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
				return err
			})
		},
	}
}

func newCribCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crib <id-or-slug>",
		Short: "Generate a study crib sheet around a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				sum, err := app.requireSummarizer()
				if err != nil {
					return err
				}
				node, err := resolveNode(ctx, app, userID(cmd), args[0])
				if err != nil {
					return err
				}
				content, err := sum.GenerateCribSheet(ctx, userID(cmd), node.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
				return err
			})
		},
	}
}

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <id-or-slug>",
		Short: "Summarize a node and its connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				sum, err := app.requireSummarizer()
				if err != nil {
					return err
				}
				node, err := resolveNode(ctx, app, userID(cmd), args[0])
				if err != nil {
					return err
				}
				summary, err := sum.SummarizeNodeByID(ctx, userID(cmd), node.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
				return err
			})
		},
	}
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List concepts due for practice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				suggestions, err := app.Suggest.Suggest(ctx, userID(cmd))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(suggestions) == 0 {
					_, err := fmt.Fprintln(out, "Nothing to practice yet.")
					return err
				}
				for _, s := range suggestions {
					last := "never practiced"
					if s.DaysSincePractice != nil {
						last = fmt.Sprintf("%d days ago", *s.DaysSincePractice)
					}
					if _, err := fmt.Fprintf(out, "%s\t%s\n", s.Title, last); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
