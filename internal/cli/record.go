package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	agenttrack "github.com/jcmd13/subAgentTracking-sub001"
	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

var (
	recordDir      string
	recordSession  string
	recordAgent    string
	recordParent   string
	recordCompress bool

	recordTool        string
	recordDescription string
	recordOperation   string
	recordPath        string
	recordQuestion    string
	recordOptions     []string
	recordSelected    string
	recordRationale   string
	recordErrType     string
	recordMessage     string
	recordSeverity    string
	recordTrigger     string
	recordInvokedBy   string
	recordReason      string
	recordValType     string
	recordResult      string
	recordChecks      []string
)

func init() {
	rootCmd.AddCommand(recordCmd)
	f := recordCmd.Flags()
	f.StringVarP(&recordDir, "dir", "d", "", "Sink directory (default from config)")
	f.StringVarP(&recordSession, "session", "s", "", "Session id to append to (default: new session)")
	f.StringVarP(&recordAgent, "agent", "a", "", "Agent name")
	f.StringVar(&recordParent, "parent", "", "Parent event id")
	f.BoolVar(&recordCompress, "compress", false, "Gzip the sink file")

	f.StringVar(&recordTool, "tool", "", "Tool name (tool_usage)")
	f.StringVar(&recordDescription, "description", "", "Action description (tool_usage)")
	f.StringVar(&recordOperation, "operation", "", "File operation (file_operation)")
	f.StringVar(&recordPath, "path", "", "File path (file_operation)")
	f.StringVar(&recordQuestion, "question", "", "Decision question (decision)")
	f.StringArrayVar(&recordOptions, "option", nil, "Decision option, repeatable (decision)")
	f.StringVar(&recordSelected, "selected", "", "Selected option (decision)")
	f.StringVar(&recordRationale, "rationale", "", "Decision rationale (decision)")
	f.StringVar(&recordErrType, "error-type", "", "Error classifier (error)")
	f.StringVar(&recordMessage, "message", "", "Error message (error)")
	f.StringVar(&recordSeverity, "severity", "", "Error severity (error)")
	f.StringVar(&recordTrigger, "trigger", "", "Snapshot trigger (context_snapshot)")
	f.StringVar(&recordInvokedBy, "invoked-by", "", "Invoking agent (agent_invocation)")
	f.StringVar(&recordReason, "reason", "", "Invocation reason (agent_invocation)")
	f.StringVar(&recordValType, "validation-type", "", "Validation kind (validation)")
	f.StringVar(&recordResult, "result", "", "Validation result (validation)")
	f.StringArrayVar(&recordChecks, "check", nil, "Validation check, repeatable (validation)")
}

var recordCmd = &cobra.Command{
	Use:   "record <event-type>",
	Short: "Record a single event from a shell step",
	Long: "Appends one event to a session sink, for pipeline steps that run\n" +
		"outside an instrumented process. Pass --session to append to an\n" +
		"existing session; otherwise a new session is started. Validation is\n" +
		"strict: a malformed event is rejected and nothing is written.",
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	et := schema.EventType(args[0])
	if !schema.IsValidType(et) {
		return fmt.Errorf("unknown event type %q", args[0])
	}

	opts := []agenttrack.Option{agenttrack.WithStrictValidation(true)}
	if recordDir != "" {
		opts = append(opts, agenttrack.WithSinkDir(recordDir))
	}
	if recordSession != "" {
		opts = append(opts, agenttrack.WithSessionID(recordSession))
	}
	if recordCompress {
		opts = append(opts, agenttrack.WithCompression(true))
	}

	tr, err := agenttrack.New(opts...)
	if err != nil {
		return err
	}

	var ropts []agenttrack.RecordOption
	if recordParent != "" {
		ropts = append(ropts, agenttrack.WithParent(recordParent))
	}

	var id string
	switch et {
	case schema.AgentInvocation:
		id, err = tr.RecordAgentInvocation(recordAgent, recordInvokedBy, recordReason, ropts...)
	case schema.ToolUsage:
		id, err = tr.RecordToolUsage(recordAgent, recordTool, recordDescription, ropts...)
	case schema.FileOperation:
		id, err = tr.RecordFileOperation(recordAgent, recordOperation, recordPath, ropts...)
	case schema.Decision:
		if recordRationale != "" {
			ropts = append(ropts, agenttrack.WithRationale(recordRationale))
		}
		id, err = tr.RecordDecision(recordAgent, recordQuestion, recordOptions, recordSelected, ropts...)
	case schema.ErrorEvent:
		if recordSeverity != "" {
			ropts = append(ropts, agenttrack.WithSeverity(recordSeverity))
		}
		id, err = tr.RecordError(recordAgent, recordErrType, recordMessage, ropts...)
	case schema.ContextSnapshot:
		id, err = tr.RecordContextSnapshot(recordTrigger, ropts...)
	case schema.Validation:
		if len(recordChecks) > 0 {
			ropts = append(ropts, agenttrack.WithChecks(recordChecks))
		}
		id, err = tr.RecordValidation(recordAgent, recordValType, recordResult, ropts...)
	}
	if err != nil {
		_ = tr.Shutdown(time.Second)
		return err
	}

	if err := tr.Shutdown(agenttrack.DefaultShutdownTimeout); err != nil {
		return err
	}
	fmt.Printf("recorded %s %s in %s\n", et, id, tr.SinkPath())
	return nil
}
