package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints build metadata for bug reports.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print envgap build information",
	Long: `Print the envgap release, the commit it was built from, the build date
and the Go toolchain and platform of the binary.

Include this output when a ranking or classification differs between two
installs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("envgap %s\n", version)
		cmd.Printf("  commit:   %s\n", commit)
		cmd.Printf("  built:    %s\n", date)
		cmd.Printf("  go:       %s\n", runtime.Version())
		cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
