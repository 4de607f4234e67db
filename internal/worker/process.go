package worker

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// SpawnConfig configures one worker subprocess (spec.md §6 "--worker-idle-
// timeout").
type SpawnConfig struct {
	BinaryPath     string
	WorkerID       ipc.WorkerID
	ProjectRoot    string
	ShardDir       string
	PackageMapPath string
	IdleTimeout    time.Duration
	SlotSize       int
	GitBlobRev     string
}

// Process is a running worker subprocess, implementing
// internal/scheduler.WorkerProcess. Its stdout is fed into a shared
// Aggregator rather than read here directly, so the driver's scheduler can
// block on one Receive call regardless of which worker answers next.
type Process struct {
	id  ipc.WorkerID
	cmd *exec.Cmd
	out *ipc.Writer
}

// Spawn starts cfg.BinaryPath in "worker" mode and wires its stdout into
// agg. The subprocess is expected to understand the
// "worker --worker-id N --project-root P --shard-dir D --idle-timeout T"
// invocation internal/worker/loop.go's Run drives (cmd/scipcxx's "worker"
// subcommand).
func Spawn(cfg SpawnConfig, agg *Aggregator) (*Process, error) {
	args := []string{
		"worker",
		"--worker-id", fmt.Sprintf("%d", cfg.WorkerID),
		"--project-root", cfg.ProjectRoot,
		"--shard-dir", cfg.ShardDir,
		"--package-map", cfg.PackageMapPath,
		"--idle-timeout", cfg.IdleTimeout.String(),
	}

	if cfg.GitBlobRev != "" {
		args = append(args, "--git-blob", cfg.GitBlobRev)
	}

	cmd := exec.Command(cfg.BinaryPath, args...) //nolint:gosec // BinaryPath is the driver's own executable, not user input.

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker: stdin pipe for worker %d: %w", cfg.WorkerID, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker: stdout pipe for worker %d: %w", cfg.WorkerID, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker: start worker %d: %w", cfg.WorkerID, err)
	}

	agg.Attach(cfg.WorkerID, stdout)

	return &Process{id: cfg.WorkerID, cmd: cmd, out: ipc.NewWriter(stdin, cfg.SlotSize)}, nil
}

// Send writes req to the worker's stdin.
func (p *Process) Send(req ipc.Request) error {
	return p.out.Send(req)
}

// Kill terminates the worker's process (spec.md §8: a hung worker is
// killed and respawned).
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}

	return p.cmd.Process.Kill()
}

// Wait blocks until the worker process exits.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}
