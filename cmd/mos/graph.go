// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/store"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create, inspect and delete nodes",
	}
	cmd.AddCommand(
		newNodeAddCmd(),
		newNodeGetCmd(),
		newNodeListCmd(),
		newNodeRmCmd(),
	)
	return cmd
}

func newNodeAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a node, or update the one with the same slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			nodeType, _ := flags.GetString("type")
			slug, _ := flags.GetString("slug")
			content, _ := flags.GetString("content")
			summary, _ := flags.GetString("summary")
			meta, _ := flags.GetStringToString("meta")
			if slug == "" {
				slug = graph.Slugify(args[0])
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				node, err := app.Graph.CreateNode(ctx, graph.CreateNodeInput{
					UserID:   userID(cmd),
					Type:     store.NodeType(nodeType),
					Slug:     slug,
					Title:    args[0],
					Content:  content,
					Summary:  summary,
					Metadata: metadataOf(meta),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), node)
			})
		},
	}

	cmd.Flags().StringP("type", "t", string(store.NodeTypeConcept), "node type")
	cmd.Flags().String("slug", "", "slug (default: slugified title)")
	cmd.Flags().String("content", "", "node content")
	cmd.Flags().String("summary", "", "short summary")
	cmd.Flags().StringToString("meta", nil, "metadata as key=value pairs")
	return cmd
}

func newNodeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id-or-slug>",
		Short: "Show a node with its edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				node, err := resolveNode(ctx, app, userID(cmd), args[0])
				if err != nil {
					return err
				}
				nwe, err := app.Graph.GetNodeWithEdges(ctx, node.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), nwe)
			})
		},
	}
}

func newNodeListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			nodeType, _ := flags.GetString("type")
			search, _ := flags.GetString("search")
			limit, _ := flags.GetInt("limit")
			offset, _ := flags.GetInt("offset")

			return withApp(cmd, func(ctx context.Context, app *App) error {
				nodes, err := app.Graph.ListNodes(ctx, userID(cmd), graph.ListOptions{
					Type:   store.NodeType(nodeType),
					Search: search,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, n := range nodes {
					if _, err := fmt.Fprintf(out, "%s\t%-8s\t%s\t%s\n", n.ID, n.Type, n.Slug, n.Title); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("type", "t", "", "filter by node type")
	cmd.Flags().StringP("search", "s", "", "match title and content")
	cmd.Flags().Int("limit", graph.DefaultListLimit, "page size")
	cmd.Flags().Int("offset", 0, "page offset")
	return cmd
}

func newNodeRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-slug>",
		Short: "Delete a node and every edge touching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				node, err := resolveNode(ctx, app, userID(cmd), args[0])
				if err != nil {
					return err
				}
				if err := app.Graph.DeleteNode(ctx, node.ID); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted node: %s\n", node.Slug)
				return err
			})
		},
	}
}

func newEdgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Create and delete edges",
	}
	cmd.AddCommand(newEdgeAddCmd(), newEdgeRmCmd())
	return cmd
}

func newEdgeAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <source> <target>",
		Short: "Connect two nodes by id or slug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			edgeType, _ := flags.GetString("type")
			summary, _ := flags.GetString("summary")

			in := graph.CreateEdgeInput{
				UserID:   userID(cmd),
				EdgeType: store.EdgeType(edgeType),
				Summary:  summary,
			}
			if flags.Changed("label") {
				label, _ := flags.GetString("label")
				in.CustomLabel = &label
			}
			if flags.Changed("weight") {
				weight, _ := flags.GetFloat64("weight")
				in.Weight = &weight
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				source, err := resolveNode(ctx, app, in.UserID, args[0])
				if err != nil {
					return err
				}
				target, err := resolveNode(ctx, app, in.UserID, args[1])
				if err != nil {
					return err
				}
				in.SourceID, in.TargetID = source.ID, target.ID

				edge, err := app.Graph.CreateEdge(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), edge)
			})
		},
	}
	cmd.Flags().StringP("type", "t", string(store.EdgeTypeRelatedTo), "edge type")
	cmd.Flags().String("label", "", "label for custom edges")
	cmd.Flags().Float64("weight", 1, "edge weight")
	cmd.Flags().String("summary", "", "why the nodes are connected")
	return cmd
}

func newEdgeRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.Graph.DeleteEdge(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted edge: %s\n", args[0])
				return err
			})
		},
	}
}

func newConnectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections <id-or-slug>",
		Short: "Walk a node's neighborhood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth, _ := cmd.Flags().GetInt("depth")
			direction, _ := cmd.Flags().GetString("direction")

			return withApp(cmd, func(ctx context.Context, app *App) error {
				node, err := resolveNode(ctx, app, userID(cmd), args[0])
				if err != nil {
					return err
				}
				conns, err := app.Graph.GetConnections(ctx, node.ID, depth, store.Direction(direction))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, c := range conns {
					if _, err := fmt.Fprintf(out, "%d\t[%s]\t%s (%s)\n", c.Depth, c.Edge.EdgeType, c.Node.Title, c.Node.Type); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntP("depth", "d", 1, "hops to follow (1 or 2)")
	cmd.Flags().String("direction", string(store.DirectionBoth), "outgoing, incoming or both")
	return cmd
}
