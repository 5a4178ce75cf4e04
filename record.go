package agenttrack

import (
	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// RecordAgentInvocation records one agent being invoked. Returns the
// assigned event id.
func (t *Tracker) RecordAgentInvocation(agentName, invokedBy, reason string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.InvocationPayload{
		AgentName: agentName,
		InvokedBy: invokedBy,
		Reason:    reason,
		Context:   rc.ctx,
		Metadata:  rc.metadata,
	}, rc)
}

// RecordToolUsage records one tool call made by an agent.
func (t *Tracker) RecordToolUsage(agent, tool, description string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	p := &schema.ToolUsagePayload{
		Agent:       agent,
		Tool:        tool,
		Description: description,
		Success:     rc.success,
	}
	if rc.duration != nil {
		p.DurationMS = float64(rc.duration.Microseconds()) / 1000
	}
	return t.record(p, rc)
}

// RecordFileOperation records a file read, write, or edit by an agent.
func (t *Tracker) RecordFileOperation(agent, operation, path string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.FileOperationPayload{
		Agent:     agent,
		Operation: operation,
		Path:      path,
		SizeBytes: rc.sizeBytes,
		Lines:     rc.lines,
	}, rc)
}

// RecordDecision records a choice an agent made between options.
func (t *Tracker) RecordDecision(agent, question string, options []string, selected string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.DecisionPayload{
		Agent:     agent,
		Question:  question,
		Options:   options,
		Selected:  selected,
		Rationale: rc.rationale,
	}, rc)
}

// RecordError records a failure observed by an agent.
func (t *Tracker) RecordError(agent, errorType, message string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.ErrorPayload{
		Agent:       agent,
		ErrorType:   errorType,
		Message:     message,
		Severity:    schema.Severity(rc.severity),
		Recoverable: rc.recover,
	}, rc)
}

// RecordContextSnapshot records a periodic state checkpoint.
func (t *Tracker) RecordContextSnapshot(trigger string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.SnapshotPayload{
		Trigger:  trigger,
		Snapshot: rc.snapshot,
	}, rc)
}

// RecordValidation records the outcome of a validation pass.
func (t *Tracker) RecordValidation(agent, validationType, result string, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)
	return t.record(&schema.ValidationPayload{
		Agent:          agent,
		ValidationType: validationType,
		Result:         result,
		Checks:         rc.checks,
	}, rc)
}

func applyRecordOptions(opts []RecordOption) *recordConfig {
	rc := &recordConfig{}
	for _, o := range opts {
		o(rc)
	}
	return rc
}
