package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agenttrack",
	Short: "Inspect and record multi-agent activity trails",
	Long: "Works on the NDJSON session sinks written by the agenttrack library:\n" +
		"verify trail integrity, replay a session as a timeline, tail a live\n" +
		"session, or record a one-off event from a shell step.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
