package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API rebuilds and queries semantic indexes over notebook content.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Notebook Assistant Retrieval API
//   description: |
//     Builds per-notebook vector indexes from notebook blocks and answers
//     retrieval queries with ranked chunks, optionally merged with full-text hits.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nbassistant",
	Short: "Semantic retrieval over notebooks",
	Long: `nbassistant chunks notebook content, embeds the chunks, keeps a
per-notebook vector index and answers retrieval queries against it.

Configuration comes from environment variables, an optional .env file and the
YAML file named by CONFIG_FILE.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
