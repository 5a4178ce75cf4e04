package sink

import (
	"fmt"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// VerifyResult holds the outcome of a sink file verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Warnings  int    `json:"warnings"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads a session sink file and checks the trail's invariants:
// every line parses against its kind's schema, event ids form a gapless
// set starting at 1 with no duplicates, and parent references point to an
// earlier-allocated id. Line order is not checked against id order: a
// scoped operation is persisted when its scope closes, after its children,
// so consumers order by event id, never by position or timestamp. Events
// persisted with a validation warning (lenient mode) are counted but not
// re-validated against their payload schema. Any id gap is reported as a
// broken trail: under the drop-on-saturation policy a gap means counted
// loss, and verification is the tool that surfaces it.
func Verify(path string) VerifyResult {
	events, err := ReadSession(path)
	if err != nil {
		return VerifyResult{Error: err.Error()}
	}

	seen := make(map[int64]int, len(events))
	var maxSeq int64
	sessionID := ""
	warnings := 0

	for i, ev := range events {
		line := i + 1

		if ev.Warning != "" {
			warnings++
			if msg := checkCommon(&ev); msg != "" {
				return VerifyResult{Error: msg, ErrorLine: line}
			}
		} else if err := schema.Validate(&ev); err != nil {
			return VerifyResult{Error: err.Error(), ErrorLine: line}
		}

		if sessionID == "" {
			sessionID = ev.SessionID
		} else if ev.SessionID != sessionID {
			return VerifyResult{
				Error:     fmt.Sprintf("session id changed from %q to %q", sessionID, ev.SessionID),
				ErrorLine: line,
			}
		}

		seq, err := schema.Seq(ev.EventID)
		if err != nil {
			return VerifyResult{Error: err.Error(), ErrorLine: line}
		}
		if seq < 1 {
			return VerifyResult{
				Error:     fmt.Sprintf("event id %s is below the sequence start", ev.EventID),
				ErrorLine: line,
			}
		}
		if prev, dup := seen[seq]; dup {
			return VerifyResult{
				Error:     fmt.Sprintf("event id %s duplicates line %d", ev.EventID, prev),
				ErrorLine: line,
			}
		}
		seen[seq] = line
		if seq > maxSeq {
			maxSeq = seq
		}

		if ev.ParentEventID != "" {
			parent, err := schema.Seq(ev.ParentEventID)
			if err != nil {
				return VerifyResult{Error: err.Error(), ErrorLine: line}
			}
			if parent >= seq {
				return VerifyResult{
					Error:     fmt.Sprintf("parent_event_id %s does not reference an earlier event", ev.ParentEventID),
					ErrorLine: line,
				}
			}
		}
	}

	if maxSeq != int64(len(events)) {
		return VerifyResult{
			Error: fmt.Sprintf("event id gap: %d events span ids 1..%d", len(events), maxSeq),
		}
	}

	return VerifyResult{Valid: true, Lines: len(events), Warnings: warnings}
}

// checkCommon validates only the common fields of an event, used for lines
// persisted with a lenient-mode warning annotation.
func checkCommon(ev *schema.Event) string {
	if ev.Timestamp == "" {
		return "ts is required"
	}
	if ev.SessionID == "" {
		return "session_id is required"
	}
	if ev.EventID == "" {
		return "event_id is required"
	}
	if !schema.IsValidType(ev.Type) {
		return fmt.Sprintf("unknown event type %q", ev.Type)
	}
	return ""
}
