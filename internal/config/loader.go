package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for scipcxx settings
// (SPEC_FULL.md §10.3: "SetEnvPrefix(\"SCIPCXX\")").
const envPrefix = "SCIPCXX"

// Load assembles a ConfigParams from CLI flags, an optional YAML config
// file, and SCIPCXX_-prefixed environment variables, the way the teacher's
// pkg/config/config.go layers viper under cobra/pflag flags. flags is the
// cobra command's already-parsed flag set; configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (ConfigParams, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return ConfigParams{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return ConfigParams{}, fmt.Errorf("bind flags: %w", err)
	}

	var cfg ConfigParams

	if err := v.Unmarshal(&cfg); err != nil {
		return ConfigParams{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if _, err := humanize.ParseBytes(orZero(cfg.IPCSlotSize)); err != nil {
		return ConfigParams{}, fmt.Errorf("%w: %q: %w", ErrInvalidSlotSize, cfg.IPCSlotSize, err)
	}

	if cfg.MemoryBudget != "" && cfg.MemoryBudget != "0" {
		if _, err := humanize.ParseBytes(cfg.MemoryBudget); err != nil {
			return ConfigParams{}, fmt.Errorf("%w: %q: %w", ErrInvalidMemoryBudget, cfg.MemoryBudget, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return ConfigParams{}, err
	}

	return cfg, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}

	return s
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("jobs", DefaultJobs())
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("receive_timeout_seconds", DefaultReceiveTimeoutSeconds)
	v.SetDefault("ipc_slot_size", DefaultIPCSlotSize)
	v.SetDefault("memory_budget", DefaultMemoryBudget)
	v.SetDefault("worker_idle_timeout_scale", DefaultWorkerIdleTimeoutScale)
	v.SetDefault("temp_dir", DefaultTempDir)
	v.SetDefault("output", DefaultOutputPath)
	v.SetDefault("deterministic", false)
	v.SetDefault("stats", false)
}

// ErrConfigFileNotFound reclassifies viper's not-found sentinel for callers
// that want to treat a missing optional config file as non-fatal.
func ErrConfigFileNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError

	return errors.As(err, &notFound)
}
