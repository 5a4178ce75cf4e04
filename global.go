package agenttrack

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// The package-level functions below are thin wrappers over one
// process-wide Tracker. Configure it with Configure before first use, or
// let the first call construct it from the config file alone. All state
// lives on the instance; these wrappers only delegate.

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// Configure builds the process-wide Tracker with the given options. It
// fails if the default tracker already recorded events; reconfiguring a
// live pipeline would orphan its session.
func Configure(opts ...Option) (*Tracker, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultTracker != nil && defaultTracker.EventCount() > 0 {
		return nil, fmt.Errorf("agenttrack: default tracker already in use")
	}

	t, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defaultTracker = t
	return t, nil
}

// Default returns the process-wide Tracker, constructing it on first use.
// A construction failure yields a disabled tracker: observability must
// never take down the observed workflow.
func Default() *Tracker {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultTracker == nil {
		t, err := New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: default tracker construction failed, logging disabled: %v\n", err)
			t = &Tracker{disabled: true}
		}
		defaultTracker = t
	}
	return defaultTracker
}

// Init starts the process-wide pipeline and returns its session id.
func Init() (string, error) {
	return Default().Init()
}

// Shutdown drains and closes the process-wide pipeline.
func Shutdown(timeout time.Duration) error {
	return Default().Shutdown(timeout)
}

// SessionID returns the process-wide session id, or "" before first use.
func SessionID() string {
	defaultMu.Lock()
	t := defaultTracker
	defaultMu.Unlock()
	if t == nil {
		return ""
	}
	return t.SessionID()
}

// EventCount reports how many events the process-wide session allocated.
func EventCount() int64 {
	defaultMu.Lock()
	t := defaultTracker
	defaultMu.Unlock()
	if t == nil {
		return 0
	}
	return t.EventCount()
}

// RecordAgentInvocation records on the process-wide tracker.
func RecordAgentInvocation(agentName, invokedBy, reason string, opts ...RecordOption) (string, error) {
	return Default().RecordAgentInvocation(agentName, invokedBy, reason, opts...)
}

// RecordToolUsage records on the process-wide tracker.
func RecordToolUsage(agent, tool, description string, opts ...RecordOption) (string, error) {
	return Default().RecordToolUsage(agent, tool, description, opts...)
}

// RecordFileOperation records on the process-wide tracker.
func RecordFileOperation(agent, operation, path string, opts ...RecordOption) (string, error) {
	return Default().RecordFileOperation(agent, operation, path, opts...)
}

// RecordDecision records on the process-wide tracker.
func RecordDecision(agent, question string, options []string, selected string, opts ...RecordOption) (string, error) {
	return Default().RecordDecision(agent, question, options, selected, opts...)
}

// RecordError records on the process-wide tracker.
func RecordError(agent, errorType, message string, opts ...RecordOption) (string, error) {
	return Default().RecordError(agent, errorType, message, opts...)
}

// RecordContextSnapshot records on the process-wide tracker.
func RecordContextSnapshot(trigger string, opts ...RecordOption) (string, error) {
	return Default().RecordContextSnapshot(trigger, opts...)
}

// RecordValidation records on the process-wide tracker.
func RecordValidation(agent, validationType, result string, opts ...RecordOption) (string, error) {
	return Default().RecordValidation(agent, validationType, result, opts...)
}

// TrackedToolUsage runs a scoped tool usage on the process-wide tracker.
func TrackedToolUsage(agent, tool, description string, fn func() error, opts ...RecordOption) (string, error) {
	return Default().TrackedToolUsage(agent, tool, description, fn, opts...)
}

// TrackedInvocation runs a scoped invocation on the process-wide tracker.
func TrackedInvocation(agentName, invokedBy, reason string, fn func() error, opts ...RecordOption) (string, error) {
	return Default().TrackedInvocation(agentName, invokedBy, reason, fn, opts...)
}

// InstallExitHook registers a best-effort SIGINT/SIGTERM handler that
// drains the process-wide pipeline with DefaultShutdownTimeout and
// re-raises the signal. Correctness never depends on the hook firing: a
// host that wants a guaranteed drain calls Shutdown itself.
func InstallExitHook() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		if err := Shutdown(DefaultShutdownTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: exit drain: %v\n", err)
		}
		signal.Stop(ch)
		_ = syscall.Kill(syscall.Getpid(), sig.(syscall.Signal))
	}()
}
