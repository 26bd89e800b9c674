package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"nb-assistant/internal/config"
	"nb-assistant/internal/rag"
)

// rebuild flags
var rebuildName string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <notebook-id>",
	Short: "Rebuild a notebook's index",
	Long:  `Chunk, embed and index every document of a notebook, replacing its previous index.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			name := rebuildName
			if name == "" {
				name = a.cfg.NotebookName(args[0])
			}
			report, err := a.pipeline.Rebuild(ctx, args[0], name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		})
	},
}

// query flags
var (
	queryK        int
	queryMinScore float64
	queryFullText bool
)

var queryCmd = &cobra.Command{
	Use:   "query <notebook-id> <text>",
	Short: "Query a notebook's index",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := rag.QueryRequest{
			NotebookID: args[0],
			Text:       strings.Join(args[1:], " "),
			K:          queryK,
			FullText:   queryFullText,
		}
		if cmd.Flags().Changed("min-score") {
			req.MinScore = &queryMinScore
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			resp, err := a.engine.Query(ctx, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <notebook-id>",
	Short: "Delete a notebook's index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.pipeline.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted index of notebook %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildName, "name", "", "display name the notebook is chunked under (default: REBUILD_NOTEBOOKS entry or the id)")

	queryCmd.Flags().IntVar(&queryK, "k", 0, "number of vector hits to request (default: QUERY_LIMIT)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "minimum similarity a vector hit must exceed (default: QUERY_MIN_SCORE)")
	queryCmd.Flags().BoolVar(&queryFullText, "full-text", false, "merge full-text hits into the result")
}

// withApp loads configuration, wires the app and runs fn until it returns or
// the process is interrupted.
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
