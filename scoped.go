package agenttrack

import (
	"errors"
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// TrackedToolUsage runs fn inside a hierarchy scope for one tool call.
// The event id is allocated on entry so that events recorded by fn link to
// it; the tool-usage event itself is persisted when the scope closes,
// carrying the measured wall-clock duration and a success flag derived
// from fn's error. The scope is closed on every exit path, including a
// panic inside fn. Returns the tool-usage event id and fn's error.
//
// When the scope cannot be opened (strict validation rejected the
// payload, or the pipeline failed to start) fn still runs, unscoped and
// unrecorded, and the returned error joins the scope error with fn's.
// Tracking never suppresses the tracked work.
func (t *Tracker) TrackedToolUsage(agent, tool, description string, fn func() error, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)

	if t.disabled {
		return "", fn()
	}

	p := &schema.ToolUsagePayload{
		Agent:       agent,
		Tool:        tool,
		Description: description,
	}
	eventID, parent, warning, err := t.openScope(p, rc)
	if err != nil {
		return "", errors.Join(err, fn())
	}

	sc := t.stack.Begin(eventID)
	start := time.Now()

	var fnErr error
	completed := false
	defer func() {
		sc.End()
		p.DurationMS = float64(time.Since(start).Microseconds()) / 1000
		if rc.success != nil {
			p.Success = rc.success
		} else {
			// A panic leaves completed false, so the event records failure.
			ok := completed && fnErr == nil
			p.Success = &ok
		}
		if err := t.submitWithID(eventID, parent, p, warning); err != nil {
			reportSubmitFailure(eventID, err)
		}
	}()

	fnErr = fn()
	completed = true
	return eventID, fnErr
}

// TrackedInvocation runs fn inside a hierarchy scope for one agent
// invocation. Events recorded by fn carry the invocation's event id as
// their parent. The invocation event is persisted when the scope closes,
// with the measured duration stamped into its metadata. Returns the
// invocation event id and fn's error.
//
// Like TrackedToolUsage, a scope that cannot be opened does not stop fn:
// it runs unscoped and the scope error is joined with fn's.
func (t *Tracker) TrackedInvocation(agentName, invokedBy, reason string, fn func() error, opts ...RecordOption) (string, error) {
	rc := applyRecordOptions(opts)

	if t.disabled {
		return "", fn()
	}

	p := &schema.InvocationPayload{
		AgentName: agentName,
		InvokedBy: invokedBy,
		Reason:    reason,
		Context:   rc.ctx,
		Metadata:  rc.metadata,
	}
	eventID, parent, warning, err := t.openScope(p, rc)
	if err != nil {
		return "", errors.Join(err, fn())
	}

	sc := t.stack.Begin(eventID)
	start := time.Now()

	var fnErr error
	defer func() {
		sc.End()
		if p.Metadata == nil {
			p.Metadata = make(map[string]any, 1)
		}
		p.Metadata["duration_ms"] = float64(time.Since(start).Microseconds()) / 1000
		if err := t.submitWithID(eventID, parent, p, warning); err != nil {
			reportSubmitFailure(eventID, err)
		}
	}()

	fnErr = fn()
	return eventID, fnErr
}

// openScope validates a scoped payload, ensures the pipeline is running,
// allocates the event id, and resolves the parent active at entry.
func (t *Tracker) openScope(p schema.Payload, rc *recordConfig) (eventID, parent, warning string, err error) {
	if t.validate {
		if verr := schema.ValidatePayload(p); verr != nil {
			if t.strict {
				return "", "", "", verr
			}
			warning = verr.Error()
		}
	}

	if _, err := t.Init(); err != nil {
		return "", "", "", err
	}

	eventID = t.session.NextEventID()

	switch {
	case rc.noParent:
	case rc.parent != "":
		parent = rc.parent
	default:
		if top, ok := t.stack.Current(); ok {
			parent = top
		}
	}
	return eventID, parent, warning, nil
}
