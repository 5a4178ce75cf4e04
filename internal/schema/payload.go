package schema

import "fmt"

// InvocationPayload records one agent being invoked by another (or by the
// orchestrator).
type InvocationPayload struct {
	AgentName string         `json:"agent_name"`
	InvokedBy string         `json:"invoked_by"`
	Reason    string         `json:"reason"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (p *InvocationPayload) Kind() EventType { return AgentInvocation }

func (p *InvocationPayload) check(ve *SchemaError) {
	if p.AgentName == "" {
		ve.add("agent_name is required")
	}
	if p.InvokedBy == "" {
		ve.add("invoked_by is required")
	}
	if p.Reason == "" {
		ve.add("reason is required")
	}
}

// ToolUsagePayload records one tool call made by an agent. DurationMS is
// filled by the scoped wrapper; Success is a tri-state (unset when unknown).
type ToolUsagePayload struct {
	Agent       string  `json:"agent"`
	Tool        string  `json:"tool_name"`
	Description string  `json:"description"`
	DurationMS  float64 `json:"duration_ms,omitempty"`
	Success     *bool   `json:"success,omitempty"`
}

func (p *ToolUsagePayload) Kind() EventType { return ToolUsage }

func (p *ToolUsagePayload) check(ve *SchemaError) {
	if p.Agent == "" {
		ve.add("agent is required")
	}
	if p.Tool == "" {
		ve.add("tool_name is required")
	}
	if p.Description == "" {
		ve.add("description is required")
	}
	if p.DurationMS < 0 {
		ve.add(fmt.Sprintf("duration_ms %v must not be negative", p.DurationMS))
	}
}

// FileOperationPayload records a read/write/edit of a file by an agent.
type FileOperationPayload struct {
	Agent     string `json:"agent"`
	Operation string `json:"operation"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Lines     int    `json:"line_count,omitempty"`
}

func (p *FileOperationPayload) Kind() EventType { return FileOperation }

func (p *FileOperationPayload) check(ve *SchemaError) {
	if p.Agent == "" {
		ve.add("agent is required")
	}
	if p.Operation == "" {
		ve.add("operation is required")
	}
	if p.Path == "" {
		ve.add("path is required")
	}
}

// DecisionPayload records a choice an agent made between options.
type DecisionPayload struct {
	Agent     string   `json:"agent"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Selected  string   `json:"selected"`
	Rationale string   `json:"rationale,omitempty"`
}

func (p *DecisionPayload) Kind() EventType { return Decision }

func (p *DecisionPayload) check(ve *SchemaError) {
	if p.Agent == "" {
		ve.add("agent is required")
	}
	if p.Question == "" {
		ve.add("question is required")
	}
	if len(p.Options) == 0 {
		ve.add("at least one option is required")
	}
	if p.Selected == "" {
		ve.add("selected is required")
	}
}

// ErrorPayload records a failure observed by an agent.
type ErrorPayload struct {
	Agent       string   `json:"agent"`
	ErrorType   string   `json:"error_type"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity,omitempty"`
	Recoverable *bool    `json:"recoverable,omitempty"`
}

func (p *ErrorPayload) Kind() EventType { return ErrorEvent }

func (p *ErrorPayload) check(ve *SchemaError) {
	if p.Agent == "" {
		ve.add("agent is required")
	}
	if p.ErrorType == "" {
		ve.add("error_type is required")
	}
	if p.Message == "" {
		ve.add("message is required")
	}
	if p.Severity != "" && !IsValidSeverity(p.Severity) {
		ve.add(fmt.Sprintf("invalid severity %q", p.Severity))
	}
}

// SnapshotPayload records a periodic context checkpoint for recovery tooling.
type SnapshotPayload struct {
	Trigger  string         `json:"trigger"`
	Snapshot map[string]any `json:"snapshot,omitempty"`
}

func (p *SnapshotPayload) Kind() EventType { return ContextSnapshot }

func (p *SnapshotPayload) check(ve *SchemaError) {
	if p.Trigger == "" {
		ve.add("trigger is required")
	}
}

// ValidationPayload records the outcome of a validation pass run by an agent.
type ValidationPayload struct {
	Agent          string   `json:"agent"`
	ValidationType string   `json:"validation_type"`
	Result         string   `json:"result"`
	Checks         []string `json:"checks,omitempty"`
}

func (p *ValidationPayload) Kind() EventType { return Validation }

func (p *ValidationPayload) check(ve *SchemaError) {
	if p.Agent == "" {
		ve.add("agent is required")
	}
	if p.ValidationType == "" {
		ve.add("validation_type is required")
	}
	if p.Result == "" {
		ve.add("result is required")
	}
}

// newPayload returns the zero payload struct for the given event type.
func newPayload(t EventType) (Payload, error) {
	switch t {
	case AgentInvocation:
		return &InvocationPayload{}, nil
	case ToolUsage:
		return &ToolUsagePayload{}, nil
	case FileOperation:
		return &FileOperationPayload{}, nil
	case Decision:
		return &DecisionPayload{}, nil
	case ErrorEvent:
		return &ErrorPayload{}, nil
	case ContextSnapshot:
		return &SnapshotPayload{}, nil
	case Validation:
		return &ValidationPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}
