package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jcmd13/subAgentTracking-sub001/internal/follow"
	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
	"github.com/jcmd13/subAgentTracking-sub001/internal/sink"
)

var (
	tailLines  int
	tailFollow bool
)

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent events to show")
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "F", false, "Keep the sink open and print events as they land")
}

var tailCmd = &cobra.Command{
	Use:   "tail <sink-file>",
	Short: "Show recent session events",
	Long: "Prints the last N events from a session sink. With --follow the sink\n" +
		"stays open and new events are printed as the writer flushes them,\n" +
		"including across size rotations.",
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	if tailFollow {
		return runTailFollow(args[0])
	}

	events, err := sink.ReadSession(args[0])
	if err != nil {
		return err
	}
	start := len(events) - tailLines
	if start < 0 {
		start = 0
	}
	for i := start; i < len(events); i++ {
		printEvent(events[i])
	}
	return nil
}

func runTailFollow(path string) error {
	f, err := follow.New(path, printEvent)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()

	return f.Run(ctx)
}

func printEvent(ev schema.Event) {
	out, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "tail: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
