package schema

import (
	"fmt"
	"strings"
	"time"
)

// SchemaError collects all validation failures for an event.
type SchemaError struct {
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("event validation failed: %s", strings.Join(e.Errors, "; "))
}

// add appends an error message.
func (e *SchemaError) add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// ValidatePayload checks only the kind-specific required fields of a
// payload. Producers run this before allocating an event id so that a
// strict-mode rejection never leaves a gap in the id sequence.
func ValidatePayload(p Payload) error {
	ve := &SchemaError{}
	p.check(ve)
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// Validate checks an event for completeness and correctness: common fields
// first, then the kind-specific required fields of its payload.
// Returns nil if valid, or a *SchemaError listing all problems.
func Validate(e *Event) error {
	ve := &SchemaError{}

	if e.Timestamp == "" {
		ve.add("ts is required")
	} else if _, err := time.Parse(TimestampFormat, e.Timestamp); err != nil {
		ve.add(fmt.Sprintf("ts %q does not match %s", e.Timestamp, TimestampFormat))
	}

	if e.SessionID == "" {
		ve.add("session_id is required")
	}

	if e.EventID == "" {
		ve.add("event_id is required")
	} else if _, err := Seq(e.EventID); err != nil {
		ve.add(fmt.Sprintf("event_id %q is not a sequence number", e.EventID))
	}

	if !IsValidType(e.Type) {
		ve.add(fmt.Sprintf("unknown event type %q", e.Type))
	}

	if e.Payload == nil {
		ve.add("payload is required")
	} else {
		if e.Payload.Kind() != e.Type {
			ve.add(fmt.Sprintf("payload kind %q does not match event type %q", e.Payload.Kind(), e.Type))
		}
		e.Payload.check(ve)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
