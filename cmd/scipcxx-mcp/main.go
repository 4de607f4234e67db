// Command scipcxx-mcp serves a previously built SCIP index over the Model
// Context Protocol (SPEC_FULL.md §0), so an editor integration can query
// symbols and documents without shelling out to a one-shot CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scipcxx/internal/mcpindex"
	"github.com/Sumatoshi-tech/scipcxx/internal/mcpserver"
	"github.com/Sumatoshi-tech/scipcxx/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	var indexPath string

	root := &cobra.Command{
		Use:           "scipcxx-mcp",
		Short:         "Serve a merged SCIP index as an MCP tool server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), indexPath)
		},
	}

	root.Flags().StringVar(&indexPath, "index", "", "Path to a SCIP index produced by \"scipcxx driver\" (required)")
	_ = root.MarkFlagRequired("index")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "scipcxx-mcp:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, indexPath string) error {
	idx, err := mcpindex.Load(indexPath)
	if err != nil {
		return fmt.Errorf("scipcxx-mcp: load index: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := mcpserver.New(mcpserver.Deps{Index: idx, Logger: logger})

	logger.Info("scipcxx-mcp: serving", "index", indexPath, "tools", srv.ListToolNames())

	return srv.Run(ctx)
}
