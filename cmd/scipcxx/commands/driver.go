package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/proto"

	"github.com/Sumatoshi-tech/scipcxx/internal/compdb"
	"github.com/Sumatoshi-tech/scipcxx/internal/config"
	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
	"github.com/Sumatoshi-tech/scipcxx/internal/merger"
	"github.com/Sumatoshi-tech/scipcxx/internal/observability"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/scheduler"
	"github.com/Sumatoshi-tech/scipcxx/internal/shard"
	"github.com/Sumatoshi-tech/scipcxx/internal/worker"
)

// NewDriverCommand implements the default entrypoint: it reads a
// compilation database, spawns a pool of worker subprocesses, runs the
// two-phase SemanticAnalysis/EmitIndex protocol to completion, merges the
// resulting shards, and writes the final SCIP index (spec.md §4.5-§4.7).
func NewDriverCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "driver",
		Short: "Index a compilation database and produce a SCIP index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDriver(cmd, configFile)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Optional YAML configuration file")
	cmd.Flags().String("project_root", "", "Project root all document paths are filed relative to (default: cwd)")

	cmd.Flags().Int("jobs", config.DefaultJobs(), "Number of parallel worker subprocesses")
	cmd.Flags().String("log_level", config.DefaultLogLevel, "debug, info, warning, or error")
	cmd.Flags().Int("receive_timeout_seconds", config.DefaultReceiveTimeoutSeconds, "Per-job timeout before a worker is considered hung")
	cmd.Flags().String("package_map", "", "Path to the --package-map JSON file (required)")
	cmd.Flags().String("compdb", "", "Path to the compile_commands.json compilation database (required)")
	cmd.Flags().String("output", config.DefaultOutputPath, "Output path for the merged SCIP index")
	cmd.Flags().String("temp_dir", config.DefaultTempDir, "Directory for worker shard files (default: a fresh temp dir)")
	cmd.Flags().String("ipc_slot_size", config.DefaultIPCSlotSize, "Maximum encoded size of one driver-to-worker message")
	cmd.Flags().String("memory_budget", config.DefaultMemoryBudget, "Advisory memory budget; validated as a size but not otherwise used (0 for none)")
	cmd.Flags().Int("worker_idle_timeout_scale", config.DefaultWorkerIdleTimeoutScale, "Worker self-exit timeout, as a multiple of receive_timeout_seconds")
	cmd.Flags().Bool("deterministic", false, "Has no effect: workers always sort occurrences within a document and the merger always sorts documents by path")
	cmd.Flags().Bool("stats", false, "Print a summary table after indexing")
	cmd.Flags().String("metrics_addr", "", "Optional address to serve Prometheus metrics on (e.g. :9090)")
	cmd.Flags().String("git_blob", "", "Optional git revision to resolve compdb file/directory entries against")
	cmd.Flags().Bool("no_color", false, "Disable colored summary output")

	return cmd
}

func runDriver(cmd *cobra.Command, configFile string) error {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return err
	}

	if noColor, _ := cmd.Flags().GetBool("no_color"); noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	providers, err := initObservability(observability.ModeDriver, cfg.MetricsAddr != "", false)
	if err != nil {
		return fmt.Errorf("driver: init observability: %w", err)
	}

	ctx := context.Background()
	defer func() { _ = providers.Shutdown(ctx) }()

	projectRootFlag, _ := cmd.Flags().GetString("project_root")

	projectRoot, err := resolveProjectRoot(projectRootFlag)
	if err != nil {
		return fmt.Errorf("driver: --project_root: %w", err)
	}

	pkgEntries, err := compdb.LoadPackageMap(cfg.PackageMapPath)
	if err != nil {
		return fmt.Errorf("driver: --package_map: %w", err)
	}

	packageMap := pathmodel.NewPackageMap(pkgEntries)

	shardDir, cleanupShardDir, err := resolveShardDir(cfg.TempDir)
	if err != nil {
		return err
	}

	defer cleanupShardDir()

	slotSize, err := humanize.ParseBytes(cfg.IPCSlotSize)
	if err != nil {
		return fmt.Errorf("driver: --ipc_slot_size: %w", err)
	}

	receiveTimeout := time.Duration(cfg.ReceiveTimeoutSeconds) * time.Second
	idleTimeout := receiveTimeout * time.Duration(cfg.WorkerIdleTimeoutScale)

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("driver: resolve own executable path: %w", err)
	}

	agg := worker.NewAggregator(cfg.Jobs * 2)

	handles := make([]*scheduler.WorkerHandle, 0, cfg.Jobs)

	for i := 0; i < cfg.Jobs; i++ {
		workerID := ipc.WorkerID(i) //nolint:gosec // cfg.Jobs is a small CLI-bounded count.

		proc, spawnErr := worker.Spawn(worker.SpawnConfig{
			BinaryPath:     binaryPath,
			WorkerID:       workerID,
			ProjectRoot:    projectRoot.String(),
			ShardDir:       shardDir,
			PackageMapPath: cfg.PackageMapPath,
			IdleTimeout:    idleTimeout,
			SlotSize:       int(slotSize), //nolint:gosec // bounded by humanize's parse, realistic slot sizes fit an int.
			GitBlobRev:     cfg.GitBlobRevision,
		}, agg)
		if spawnErr != nil {
			return fmt.Errorf("driver: spawn worker %d: %w", i, spawnErr)
		}

		handles = append(handles, &scheduler.WorkerHandle{ID: workerID, Status: scheduler.WorkerFree, Proc: proc})
	}

	defer shutdownWorkers(handles, providers.Logger)

	queue := scheduler.NewQueue(handles)
	ownership := scheduler.NewHeaderOwnership()
	merged := merger.New()

	stats := runStats{}

	enqueueErr := enqueueCompdb(cfg.CompdbPath, queue, ownership, merged, providers.Logger, &stats)
	if enqueueErr != nil {
		return enqueueErr
	}

	tickerCtx, stopTicker := context.WithCancel(ctx)

	stopProgress := func() {}
	if !Quiet {
		stopProgress = scheduler.StartProgressTicker(tickerCtx, providers.Logger, queue.Completed, queue.Total)
	}

	runErr := scheduler.Run(queue, agg, scheduler.Options{
		PerJobTimeout: receiveTimeout,
		Logger:        providers.Logger,
	})

	stopTicker()
	stopProgress()

	if runErr != nil {
		return fmt.Errorf("driver: scheduler run: %w", runErr)
	}

	index := merged.Build()
	stats.Documents = len(index.Documents)
	stats.ExternalSymbols = len(index.ExternalSymbols)

	out, marshalErr := proto.Marshal(index)
	if marshalErr != nil {
		return fmt.Errorf("driver: marshal index: %w", marshalErr)
	}

	if writeErr := os.WriteFile(cfg.OutputPath, out, 0o600); writeErr != nil {
		return fmt.Errorf("driver: write %s: %w", cfg.OutputPath, writeErr)
	}

	providers.Logger.Info("index written", "path", cfg.OutputPath, "documents", stats.Documents, "external_symbols", stats.ExternalSymbols)

	if !Quiet {
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "index written: %s (%d documents, %d external symbols)\n",
			cfg.OutputPath, stats.Documents, stats.ExternalSymbols)
	}

	if cfg.Stats {
		printStats(cmd, stats)
	}

	return nil
}

func resolveProjectRoot(flagValue string) (pathmodel.AbsolutePath, error) {
	if flagValue != "" {
		return pathmodel.TryAbsolutePath(flagValue)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return pathmodel.AbsolutePath{}, err
	}

	return pathmodel.TryAbsolutePath(cwd)
}

func resolveShardDir(configured string) (string, func(), error) {
	if configured != "" {
		return configured, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "scipcxx-shards-")
	if err != nil {
		return "", func() {}, fmt.Errorf("driver: create temp shard dir: %w", err)
	}

	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func shutdownWorkers(handles []*scheduler.WorkerHandle, logger *slog.Logger) {
	for _, h := range handles {
		if err := h.Proc.Send(ipc.Request{ID: ipc.ShutdownJobID, Job: ipc.Job{Kind: ipc.JobShutdown}}); err != nil {
			logger.Warn("driver: shutdown send failed, killing worker", "worker", h.ID, "error", err)
			_ = h.Proc.Kill()

			continue
		}

		if err := h.Proc.Wait(); err != nil {
			logger.Warn("driver: worker exited with error", "worker", h.ID, "error", err)
		}
	}
}

// runStats accumulates the counters SPEC_FULL.md §12.3 prints as a summary
// table (original: Statistics.{h,cc}).
type runStats struct {
	TUs             int
	WellBehaved     int
	IllBehaved      int
	Documents       int
	ExternalSymbols int
}

// enqueueCompdb streams the compilation database and enqueues one
// SemanticAnalysis job per entry, wiring the follow-up chain that performs
// header ownership arbitration and, on EmitIndex completion, ingests the
// resulting shard into merged (spec.md §4.5's two-phase protocol).
func enqueueCompdb(
	path string,
	queue *scheduler.Queue,
	ownership *scheduler.HeaderOwnership,
	merged *merger.Merger,
	logger *slog.Logger,
	stats *runStats,
) error {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied CLI flag.
	if err != nil {
		return fmt.Errorf("driver: open compdb %s: %w", path, err)
	}
	defer f.Close()

	return compdb.StreamCommands(f, func(c compdb.Command) error {
		mainFile := c.File
		if !filepath.IsAbs(mainFile) {
			mainFile = filepath.Join(c.Directory, mainFile)
		}

		stats.TUs++

		job := ipc.Job{
			Kind: ipc.JobSemanticAnalysis,
			SemanticAnalysis: &ipc.SemanticAnalysisJob{
				MainFile:  mainFile,
				Args:      c.Arguments,
				Directory: c.Directory,
			},
		}

		queue.Enqueue(job, onSemanticAnalysisResult(mainFile, ownership, merged, logger, stats))

		return nil
	})
}

func onSemanticAnalysisResult(
	mainFile string,
	ownership *scheduler.HeaderOwnership,
	merged *merger.Merger,
	logger *slog.Logger,
	stats *runStats,
) func(ipc.WorkerID, ipc.Result) []scheduler.FollowUp {
	return func(worker ipc.WorkerID, result ipc.Result) []scheduler.FollowUp {
		if result.Kind == ipc.ResultError {
			logger.Error("driver: semantic analysis failed", "file", mainFile, "error", result.Error)

			return nil
		}

		if result.SemanticAnalysis == nil {
			return nil
		}

		var assigned []ipc.AssignedFile

		for _, h := range result.SemanticAnalysis.Headers {
			if h.WellBehaved {
				stats.WellBehaved++
			} else {
				stats.IllBehaved++
			}

			for _, hash := range h.Hashes {
				if ownership.Claim(h.Path, hash, worker) {
					assigned = append(assigned, ipc.AssignedFile{Path: h.Path, Hash: hash})
				}
			}
		}

		emitJob := ipc.Job{
			Kind: ipc.JobEmitIndex,
			EmitIndex: &ipc.EmitIndexJob{
				MainFile: mainFile,
				Assigned: assigned,
			},
		}

		return []scheduler.FollowUp{{
			Job:          emitJob,
			PinnedWorker: worker,
			HasPinned:    true,
			OnResult:     onEmitIndexResult(mainFile, merged, logger),
		}}
	}
}

func onEmitIndexResult(mainFile string, merged *merger.Merger, logger *slog.Logger) func(ipc.WorkerID, ipc.Result) []scheduler.FollowUp {
	return func(_ ipc.WorkerID, result ipc.Result) []scheduler.FollowUp {
		if result.Kind == ipc.ResultError {
			logger.Error("driver: emit index failed", "file", mainFile, "error", result.Error)

			return nil
		}

		if result.EmitIndex == nil {
			return nil
		}

		data, err := shard.Read(result.EmitIndex.ShardPath)
		if err != nil {
			logger.Error("driver: read shard failed", "path", result.EmitIndex.ShardPath, "error", err)

			return nil
		}

		merged.Ingest(data)

		_ = os.Remove(result.EmitIndex.ShardPath)

		return nil
	}
}

// printStats renders a summary table the way cmd/codefang's render
// command formats analyzer output, using the same go-pretty dependency
// (SPEC_FULL.md §11).
func printStats(cmd *cobra.Command, s runStats) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRows([]table.Row{
		{"translation units", s.TUs},
		{"well-behaved headers", s.WellBehaved},
		{"ill-behaved headers", s.IllBehaved},
		{"documents", s.Documents},
		{"external symbols", s.ExternalSymbols},
	})
	t.Render()
}
