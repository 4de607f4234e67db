package config

import "runtime"

// Default values for ConfigParams fields not supplied via flag, file, or
// environment (spec.md §6).
const (
	DefaultLogLevel               = "info"
	DefaultReceiveTimeoutSeconds  = 60
	DefaultIPCSlotSize            = "1MiB"
	DefaultMemoryBudget           = "0"
	DefaultWorkerIdleTimeoutScale = 5
	DefaultTempDir                = ""
	DefaultOutputPath             = "index.scip"
)

// DefaultJobs mirrors the CLI's documented default (spec.md §6: "default =
// hardware concurrency").
func DefaultJobs() int {
	return runtime.NumCPU()
}
