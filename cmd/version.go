package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kiosk build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := buildInfo{Version: Version, Commit: CommitSHA, Built: BuildDate}
	if mustGetBool(cmd, "json") {
		return outputJSON(info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "library-kiosk %s\n", info.Version)
	fmt.Fprintf(out, "  Commit: %s\n", info.Commit)
	fmt.Fprintf(out, "  Built:  %s\n", info.Built)
	return nil
}
