// Package scope tracks the stack of currently-open scoped operations so that
// events created inside a scope are linked to the event that opened it.
package scope

import (
	"fmt"
	"sync"
)

// Stack is a LIFO of open scopes, each holding the event ID that started it.
// The top of the stack is the default parent for any event created while the
// scope is open. Safe for concurrent readers and writers; producers running
// on independent goroutines that need independent hierarchies should pass an
// explicit parent instead of sharing one stack.
type Stack struct {
	mu   sync.Mutex
	open []string
}

// NewStack returns an empty hierarchy stack.
func NewStack() *Stack {
	return &Stack{}
}

// Begin opens a scope parented to eventID and returns its handle.
func (s *Stack) Begin(eventID string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = append(s.open, eventID)
	return &Scope{stack: s, eventID: eventID}
}

// Current returns the event ID of the innermost open scope, or "" and false
// when no scope is open.
func (s *Stack) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.open) == 0 {
		return "", false
	}
	return s.open[len(s.open)-1], true
}

// Depth reports how many scopes are open.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// end pops the top of the stack, which must be eventID. Closing scopes out
// of LIFO order silently corrupts every subsequent parent link, so a
// mismatch panics rather than guessing.
func (s *Stack) end(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.open) == 0 {
		panic(fmt.Sprintf("scope: End for %s with no open scope", eventID))
	}
	top := s.open[len(s.open)-1]
	if top != eventID {
		panic(fmt.Sprintf("scope: End for %s out of order, innermost open scope is %s", eventID, top))
	}
	s.open = s.open[:len(s.open)-1]
}

// Scope is the handle for one open scoped operation. End must be called on
// every exit path, normally via defer.
type Scope struct {
	stack   *Stack
	eventID string
	done    bool
}

// EventID returns the event that opened this scope.
func (c *Scope) EventID() string {
	return c.eventID
}

// End closes the scope. Calling End twice is a no-op so that a deferred End
// coexists with an explicit early close.
func (c *Scope) End() {
	if c.done {
		return
	}
	c.done = true
	c.stack.end(c.eventID)
}
