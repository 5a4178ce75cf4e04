// Package agenttrack is an embeddable event-logging core for multi-agent
// automation workflows. It records typed events (agent invocations, tool
// usage, file operations, decisions, errors, context snapshots, and
// validations) into an append-only newline-delimited JSON file per
// session, through a bounded queue drained by a single background writer.
//
// The hot path never blocks the workflow: submission hands the event to
// the queue and returns, and on saturation the event is dropped with a
// counted, reportable loss instead of stalling the caller. Consumers of a
// session file must order events by event id, not by line position or
// timestamp.
//
// Construct a Tracker explicitly and pass it to producers, or use the
// package-level functions, which delegate to one process-wide instance:
//
//	tracker, err := agenttrack.New(agenttrack.WithSinkDir("logs"))
//	if err != nil { ... }
//	defer tracker.Shutdown(5 * time.Second)
//
//	id, _ := tracker.RecordAgentInvocation("reviewer", "orchestrator", "review diff")
package agenttrack
