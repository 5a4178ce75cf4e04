// Package identity allocates the identifiers that give events their causal
// order: one session ID per process run, and a gapless sequence of event IDs
// within that session.
package identity

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionFormat is the time layout embedded in generated session IDs.
const DefaultSessionFormat = "20060102_150405"

// Session is one logging lifetime of a host process. The ID is derived from
// the start time plus a short random suffix so that two processes started in
// the same second do not collide.
type Session struct {
	ID        string    `json:"session_id"`
	StartTime time.Time `json:"start_time"`

	seq atomic.Int64
}

// NewSession creates a session whose ID embeds the current time rendered
// with the given layout. An empty layout selects DefaultSessionFormat.
func NewSession(layout string) *Session {
	if layout == "" {
		layout = DefaultSessionFormat
	}
	now := time.Now().UTC()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return &Session{
		ID:        fmt.Sprintf("session_%s_%s", now.Format(layout), suffix),
		StartTime: now,
	}
}

// Resume returns a session with a caller-supplied ID, for hosts that manage
// session identity themselves.
func Resume(id string) *Session {
	return &Session{
		ID:        id,
		StartTime: time.Now().UTC(),
	}
}

// SkipTo advances the allocator so the next event ID is n+1. Used when
// resuming a session that already has events on disk; a no-op if the
// counter is already past n.
func (s *Session) SkipTo(n int64) {
	for {
		cur := s.seq.Load()
		if cur >= n || s.seq.CompareAndSwap(cur, n) {
			return
		}
	}
}

// NextEventID returns the next event ID for this session: a zero-padded
// sequence number starting at 000001. Safe for concurrent producers; two
// concurrent calls never yield the same ID, and IDs reflect the order in
// which the allocator serviced requests.
func (s *Session) NextEventID() string {
	return FormatEventID(s.seq.Add(1))
}

// EventCount reports how many event IDs have been allocated so far.
func (s *Session) EventCount() int64 {
	return s.seq.Load()
}

// FormatEventID renders a sequence number as a sink event id.
func FormatEventID(n int64) string {
	return fmt.Sprintf("%06d", n)
}
