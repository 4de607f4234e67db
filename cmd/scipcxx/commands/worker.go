package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scipcxx/internal/compdb"
	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
	"github.com/Sumatoshi-tech/scipcxx/internal/observability"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/worker"
)

// NewWorkerCommand implements the worker subprocess entrypoint
// internal/worker/process.go's Spawn invokes: it speaks framed
// SemanticAnalysis/EmitIndex requests over stdin/stdout until told to
// shut down or idleTimeout elapses with no request arriving (SPEC_FULL.md
// §12.6).
func NewWorkerCommand() *cobra.Command {
	var (
		workerID       uint64
		projectRoot    string
		shardDir       string
		packageMapPath string
		idleTimeout    time.Duration
		gitBlobRev     string
	)

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one indexing worker subprocess (internal use)",
		Hidden: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			providers, err := initObservability(observability.ModeWorker, false, false)
			if err != nil {
				return fmt.Errorf("worker: init observability: %w", err)
			}

			defer func() { _ = providers.Shutdown(context.Background()) }()

			root, err := pathmodel.TryAbsolutePath(projectRoot)
			if err != nil {
				return fmt.Errorf("worker: --project-root: %w", err)
			}

			var pkgMap *pathmodel.PackageMap

			if packageMapPath != "" {
				entries, loadErr := compdb.LoadPackageMap(packageMapPath)
				if loadErr != nil {
					return fmt.Errorf("worker: --package-map: %w", loadErr)
				}

				pkgMap = pathmodel.NewPackageMap(entries)
			}

			var gitBlob *compdb.GitBlobResolver

			if gitBlobRev != "" {
				resolver, openErr := compdb.OpenGitBlobResolver(projectRoot, gitBlobRev)
				if openErr != nil {
					return fmt.Errorf("worker: --git-blob: %w", openErr)
				}

				defer resolver.Close()

				gitBlob = resolver
			}

			rt := worker.NewRuntime(root, ipc.WorkerID(workerID), shardDir, pkgMap, gitBlob)

			return worker.Run(rt, os.Stdin, os.Stdout, ipc.WorkerID(workerID), idleTimeout, providers.Logger)
		},
	}

	cmd.Flags().Uint64Var(&workerID, "worker-id", 0, "This worker's id, assigned by the driver")
	cmd.Flags().StringVar(&projectRoot, "project-root", "", "Absolute path to the project root")
	cmd.Flags().StringVar(&shardDir, "shard-dir", "", "Directory EmitIndex jobs write shard files into")
	cmd.Flags().StringVar(&packageMapPath, "package-map", "", "Path to the --package-map file (optional)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 5*time.Minute, "Exit if no request arrives within this duration")
	cmd.Flags().StringVar(&gitBlobRev, "git-blob", "", "Read file contents as of this git revision instead of the working tree (optional)")

	_ = cmd.MarkFlagRequired("project-root")
	_ = cmd.MarkFlagRequired("shard-dir")

	return cmd
}
