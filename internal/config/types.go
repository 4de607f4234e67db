// Package config assembles the driver's flat configuration struct from CLI
// flags, an optional YAML file, and environment variables, the way the
// teacher's pkg/config and pkg/framework/config.go layer spf13/viper under
// spf13/cobra flags (SPEC_FULL.md §10.3).
package config

import (
	"errors"
	"fmt"
)

// Sentinel configuration errors (spec.md §7 "Configuration error" row).
var (
	ErrMissingCompdb      = errors.New("scipcxx: --compdb is required")
	ErrMissingPackageMap  = errors.New("scipcxx: --package-map is required")
	ErrNoWorkers          = errors.New("scipcxx: --jobs must be positive")
	ErrInvalidLogLevel    = errors.New("scipcxx: invalid --log-level")
	ErrInvalidTimeout     = errors.New("scipcxx: --receive-timeout-seconds must be positive")
	ErrInvalidSlotSize    = errors.New("scipcxx: invalid --ipc-slot-size")
	ErrInvalidMemoryBudget = errors.New("scipcxx: invalid --memory-budget")
)

// ConfigParams is the driver's fully-resolved configuration (spec.md §6).
type ConfigParams struct {
	Jobs                   int    `mapstructure:"jobs"`
	LogLevel               string `mapstructure:"log_level"`
	ReceiveTimeoutSeconds  int    `mapstructure:"receive_timeout_seconds"`
	PackageMapPath         string `mapstructure:"package_map"`
	CompdbPath             string `mapstructure:"compdb"`
	OutputPath             string `mapstructure:"output"`
	TempDir                string `mapstructure:"temp_dir"`
	IPCSlotSize            string `mapstructure:"ipc_slot_size"`
	MemoryBudget           string `mapstructure:"memory_budget"`
	WorkerIdleTimeoutScale int    `mapstructure:"worker_idle_timeout_scale"`
	Deterministic          bool   `mapstructure:"deterministic"`
	Stats                  bool   `mapstructure:"stats"`
	MetricsAddr            string `mapstructure:"metrics_addr"`
	GitBlobRevision        string `mapstructure:"git_blob"`
	Verbose                bool   `mapstructure:"verbose"`
	Quiet                  bool   `mapstructure:"quiet"`
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warning": true, "error": true,
}

// Validate checks the resolved configuration against spec.md §6/§7, the
// boundary the CLI must reject *before* spawning any worker (spec.md §8
// "Zero workers configured → exit with configuration error before spawn").
func (c ConfigParams) Validate() error {
	if c.CompdbPath == "" {
		return ErrMissingCompdb
	}

	if c.PackageMapPath == "" {
		return ErrMissingPackageMap
	}

	if c.Jobs <= 0 {
		return fmt.Errorf("%w: got %d", ErrNoWorkers, c.Jobs)
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	if c.ReceiveTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, c.ReceiveTimeoutSeconds)
	}

	return nil
}
