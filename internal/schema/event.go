// Package schema defines the event record written to a session sink, the
// structured unit of the agent activity trail. Payloads are a closed set of
// typed structs (no map[string]any at the top level) so that required fields
// are checked at compile time and json.Marshal field order is deterministic.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampFormat is the layout used in event timestamps (UTC, millisecond).
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// EventType enumerates the kinds of events the tracker records.
type EventType string

const (
	AgentInvocation EventType = "agent_invocation"
	ToolUsage       EventType = "tool_usage"
	FileOperation   EventType = "file_operation"
	Decision        EventType = "decision"
	ErrorEvent      EventType = "error"
	ContextSnapshot EventType = "context_snapshot"
	Validation      EventType = "validation"
)

// validTypes is the set of recognized event types.
var validTypes = map[EventType]bool{
	AgentInvocation: true,
	ToolUsage:       true,
	FileOperation:   true,
	Decision:        true,
	ErrorEvent:      true,
	ContextSnapshot: true,
	Validation:      true,
}

// IsValidType returns true if t is a recognized event type.
func IsValidType(t EventType) bool {
	return validTypes[t]
}

// Severity indicates the urgency of an error event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// validSeverities is the set of recognized severity levels.
var validSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// IsValidSeverity returns true if s is a recognized severity level.
func IsValidSeverity(s Severity) bool {
	return validSeverities[s]
}

// Payload is the kind-specific body of an event. The set of implementations
// is closed: one struct per event type, defined in payload.go.
type Payload interface {
	// Kind returns the event type this payload belongs to.
	Kind() EventType

	// check appends kind-specific validation failures to ve.
	check(ve *SchemaError)
}

// Event is one line in the session JSONL sink. EventID values are gapless
// zero-padded sequence numbers within a session; ParentEventID, when set,
// references an earlier EventID in the same session.
type Event struct {
	Timestamp     string    `json:"ts"`
	SessionID     string    `json:"session_id"`
	EventID       string    `json:"event_id"`
	ParentEventID string    `json:"parent_event_id,omitempty"`
	Type          EventType `json:"event_type"`
	Payload       Payload   `json:"payload"`
	Warning       string    `json:"validation_warning,omitempty"`
}

// rawEvent mirrors Event with an undecoded payload, for two-pass unmarshal.
type rawEvent struct {
	Timestamp     string          `json:"ts"`
	SessionID     string          `json:"session_id"`
	EventID       string          `json:"event_id"`
	ParentEventID string          `json:"parent_event_id,omitempty"`
	Type          EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Warning       string          `json:"validation_warning,omitempty"`
}

// UnmarshalJSON decodes an event line, selecting the payload struct by
// event_type. Unknown event types are an error, not a silent passthrough.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := newPayload(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
	}

	e.Timestamp = raw.Timestamp
	e.SessionID = raw.SessionID
	e.EventID = raw.EventID
	e.ParentEventID = raw.ParentEventID
	e.Type = raw.Type
	e.Payload = payload
	e.Warning = raw.Warning
	return nil
}

// Seq parses an event id as its sequence number. Event ids are zero-padded
// decimal; consumers must order by Seq, not by timestamp.
func Seq(eventID string) (int64, error) {
	n, err := strconv.ParseInt(eventID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("event id %q is not a sequence number: %w", eventID, err)
	}
	return n, nil
}

// Now returns the current UTC time rendered in TimestampFormat.
func Now() string {
	return time.Now().UTC().Format(TimestampFormat)
}
