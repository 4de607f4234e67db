package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scipcxx/pkg/version"
)

// NewVersionCommand reports build metadata, following
// cmd/codefang/main.go's versionCmd.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "scipcxx %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
