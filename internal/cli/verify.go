package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcmd13/subAgentTracking-sub001/internal/sink"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <sink-file>",
	Short: "Verify the integrity of a session sink",
	Long: "Checks that every line parses against its event schema, that event ids\n" +
		"form a gapless sequence with no duplicates, and that every parent\n" +
		"reference points to an earlier-allocated event. Exits 0 if valid, 1 if\n" +
		"the trail is broken.",
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	result := sink.Verify(args[0])
	if result.Valid {
		if result.Warnings > 0 {
			fmt.Printf("OK: %d events verified (%d with validation warnings)\n", result.Lines, result.Warnings)
		} else {
			fmt.Printf("OK: %d events verified\n", result.Lines)
		}
		return nil
	}
	if result.ErrorLine > 0 {
		fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	} else {
		fmt.Fprintf(os.Stderr, "FAILED: %s\n", result.Error)
	}
	os.Exit(1)
	return nil
}
