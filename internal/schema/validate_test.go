package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func validEvent() *Event {
	return &Event{
		Timestamp: Now(),
		SessionID: "session_20260826_101500_ab12cd",
		EventID:   "000001",
		Type:      ToolUsage,
		Payload: &ToolUsagePayload{
			Agent:       "builder",
			Tool:        "Bash",
			Description: "run unit tests",
		},
	}
}

func TestValidateAcceptsWellFormedEvent(t *testing.T) {
	if err := Validate(validEvent()); err != nil {
		t.Fatalf("expected valid event, got: %v", err)
	}
}

func TestValidateRejectsMissingCommonFields(t *testing.T) {
	e := validEvent()
	e.SessionID = ""
	e.EventID = ""

	err := Validate(e)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidateRejectsNonSequenceEventID(t *testing.T) {
	e := validEvent()
	e.EventID = "evt-abc"
	if err := Validate(e); err == nil {
		t.Fatal("expected validation error for non-numeric event id")
	}
}

func TestValidateRejectsPayloadTypeMismatch(t *testing.T) {
	e := validEvent()
	e.Type = Decision
	err := Validate(e)
	if err == nil {
		t.Fatal("expected validation error for payload kind mismatch")
	}
	if !strings.Contains(err.Error(), "does not match event type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateKindSpecificRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		typ     EventType
		want    string
	}{
		{
			name:    "invocation missing invoked_by",
			payload: &InvocationPayload{AgentName: "reviewer", Reason: "check diff"},
			typ:     AgentInvocation,
			want:    "invoked_by is required",
		},
		{
			name:    "tool usage missing description",
			payload: &ToolUsagePayload{Agent: "builder", Tool: "Read"},
			typ:     ToolUsage,
			want:    "description is required",
		},
		{
			name:    "file operation missing path",
			payload: &FileOperationPayload{Agent: "builder", Operation: "write"},
			typ:     FileOperation,
			want:    "path is required",
		},
		{
			name:    "decision without options",
			payload: &DecisionPayload{Agent: "planner", Question: "retry?", Selected: "yes"},
			typ:     Decision,
			want:    "at least one option is required",
		},
		{
			name:    "error with bad severity",
			payload: &ErrorPayload{Agent: "builder", ErrorType: "io", Message: "disk full", Severity: "fatal"},
			typ:     ErrorEvent,
			want:    `invalid severity "fatal"`,
		},
		{
			name:    "snapshot missing trigger",
			payload: &SnapshotPayload{},
			typ:     ContextSnapshot,
			want:    "trigger is required",
		},
		{
			name:    "validation missing result",
			payload: &ValidationPayload{Agent: "qa", ValidationType: "lint"},
			typ:     Validation,
			want:    "result is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			e.Type = tt.typ
			e.Payload = tt.payload
			err := Validate(e)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestEventRoundTripSelectsTypedPayload(t *testing.T) {
	recoverable := true
	e := &Event{
		Timestamp:     Now(),
		SessionID:     "session_20260826_101500_ab12cd",
		EventID:       "000004",
		ParentEventID: "000001",
		Type:          ErrorEvent,
		Payload: &ErrorPayload{
			Agent:       "builder",
			ErrorType:   "timeout",
			Message:     "tool call exceeded 30s",
			Severity:    SeverityHigh,
			Recoverable: &recoverable,
		},
	}

	line, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Event
	if err := json.Unmarshal(line, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, ok := got.Payload.(*ErrorPayload)
	if !ok {
		t.Fatalf("expected *ErrorPayload, got %T", got.Payload)
	}
	if p.Message != "tool call exceeded 30s" || p.Severity != SeverityHigh {
		t.Fatalf("payload mismatch: %+v", p)
	}
	if got.ParentEventID != "000001" {
		t.Fatalf("parent_event_id mismatch: %q", got.ParentEventID)
	}
	if err := Validate(&got); err != nil {
		t.Fatalf("round-tripped event should validate: %v", err)
	}
}

func TestUnmarshalRejectsUnknownEventType(t *testing.T) {
	line := `{"ts":"2026-08-26T10:15:00.000Z","session_id":"s","event_id":"000001","event_type":"telemetry","payload":{}}`
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestSeqParsesZeroPaddedIDs(t *testing.T) {
	n, err := Seq("000042")
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
	if _, err := Seq("42nd"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}
