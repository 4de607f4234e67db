// Package main provides the entry point for the scipcxx CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scipcxx/cmd/scipcxx/commands"
	"github.com/Sumatoshi-tech/scipcxx/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	root := &cobra.Command{
		Use:           "scipcxx",
		Short:         "Generate a SCIP index for a C/C++/Objective-C project",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&commands.Verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVarP(&commands.Quiet, "quiet", "q", false, "Suppress non-error logging")

	root.AddCommand(
		commands.NewDriverCommand(),
		commands.NewWorkerCommand(),
		commands.NewVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scipcxx:", err)
		os.Exit(1)
	}
}
