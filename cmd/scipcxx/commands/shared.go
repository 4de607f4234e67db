// Package commands implements CLI command handlers for scipcxx.
package commands

import (
	"log/slog"

	"github.com/Sumatoshi-tech/scipcxx/internal/observability"
	"github.com/Sumatoshi-tech/scipcxx/pkg/version"
)

// Verbose and Quiet are bound to the root command's persistent flags
// (SPEC_FULL.md §10.3, following cmd/codefang/main.go's construction of
// shared flags).
var (
	Verbose bool
	Quiet   bool
)

// initObservability builds the providers for one process, tagging it with
// mode so driver and worker logs interleave legibly on a shared
// stdout/stderr (SPEC_FULL.md §10.1).
func initObservability(mode observability.AppMode, metricsEnabled bool, debugTrace bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = mode
	cfg.MetricsEnabled = metricsEnabled
	cfg.DebugTrace = debugTrace

	if Verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	if Quiet {
		cfg.LogLevel = slog.LevelError
	}

	return observability.Init(cfg)
}
