package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
	"github.com/jcmd13/subAgentTracking-sub001/internal/sink"
)

var (
	replayAgent  string
	replayType   string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayAgent, "agent", "a", "", "Filter by agent name")
	replayCmd.Flags().StringVarP(&replayType, "type", "t", "", "Filter by event type")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var replayCmd = &cobra.Command{
	Use:   "replay <sink-file>",
	Short: "Replay a session as a timeline",
	Long: "Reads a session sink, applies optional agent, type and time filters,\n" +
		"and renders the events in id order with a per-type summary.",
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	filter := sink.ReplayFilter{Agent: replayAgent}

	if replayType != "" {
		et := schema.EventType(replayType)
		if !schema.IsValidType(et) {
			return fmt.Errorf("unknown event type %q", replayType)
		}
		filter.Type = et
	}
	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}
	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	result, err := sink.Replay(args[0], filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := sink.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(sink.FormatTimeline(result))
	}
	return nil
}
