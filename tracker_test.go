package agenttrack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
	"github.com/jcmd13/subAgentTracking-sub001/internal/sink"
)

// newTestTracker builds a tracker isolated from any machine config file.
func newTestTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	base := []Option{
		WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")),
		WithSinkDir(t.TempDir()),
	}
	tr, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return tr
}

func TestScopedInvocationScenario(t *testing.T) {
	tr := newTestTracker(t)

	sessionID, err := tr.Init()
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	invID, err := tr.TrackedInvocation("builder", "orchestrator", "implement feature", func() error {
		id, err := tr.RecordToolUsage("builder", "Read", "read source file")
		require.NoError(t, err)
		assert.Equal(t, "000002", id)

		id, err = tr.RecordToolUsage("builder", "Edit", "apply patch")
		require.NoError(t, err)
		assert.Equal(t, "000003", id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "000001", invID)

	errID, err := tr.RecordError("builder", "compile", "missing import")
	require.NoError(t, err)
	assert.Equal(t, "000004", errID)

	require.NoError(t, tr.Shutdown(5*time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)
	require.Len(t, events, 4)

	byID := make(map[string]schema.Event, 4)
	for _, ev := range events {
		byID[ev.EventID] = ev
	}

	assert.Equal(t, "000001", byID["000002"].ParentEventID)
	assert.Equal(t, "000001", byID["000003"].ParentEventID)
	assert.Empty(t, byID["000004"].ParentEventID)
	assert.Empty(t, byID["000001"].ParentEventID)

	inv, ok := byID["000001"].Payload.(*schema.InvocationPayload)
	require.True(t, ok)
	assert.Contains(t, inv.Metadata, "duration_ms")

	result := sink.Verify(tr.SinkPath())
	assert.True(t, result.Valid, "verify failed: %s", result.Error)
}

func TestInitIsIdempotent(t *testing.T) {
	tr := newTestTracker(t)

	first, err := tr.Init()
	require.NoError(t, err)
	second, err := tr.Init()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, tr.Shutdown(time.Second))
}

func TestLazyInitOnFirstRecord(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.RecordContextSnapshot("compaction", WithSnapshot(map[string]any{"tokens": 91000}))
	require.NoError(t, err)
	assert.Equal(t, "000001", id)

	require.NoError(t, tr.Shutdown(time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestStrictModeRejectsWithoutSequenceGap(t *testing.T) {
	tr := newTestTracker(t, WithStrictValidation(true))

	_, err := tr.RecordToolUsage("builder", "", "")
	require.Error(t, err)
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)

	id, err := tr.RecordToolUsage("builder", "Bash", "run tests")
	require.NoError(t, err)
	assert.Equal(t, "000001", id, "rejected event must not consume an id")

	require.NoError(t, tr.Shutdown(time.Second))

	result := sink.Verify(tr.SinkPath())
	assert.True(t, result.Valid, "verify failed: %s", result.Error)
	assert.Equal(t, 1, result.Lines)
}

func TestLenientModeAnnotatesAndKeeps(t *testing.T) {
	tr := newTestTracker(t)

	id, err := tr.RecordToolUsage("builder", "", "")
	require.NoError(t, err, "lenient mode must not surface validation errors")
	assert.Equal(t, "000001", id)

	require.NoError(t, tr.Shutdown(time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Warning, "tool_name is required")

	result := sink.Verify(tr.SinkPath())
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Warnings)
}

func TestValidationDisabledTrustsCaller(t *testing.T) {
	tr := newTestTracker(t, WithValidation(false))

	id, err := tr.RecordToolUsage("builder", "", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", id)

	require.NoError(t, tr.Shutdown(time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Warning)
}

func TestDisabledTrackerIsNoOp(t *testing.T) {
	tr, err := New(
		WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")),
		WithDisabled(),
	)
	require.NoError(t, err)

	id, err := tr.RecordError("builder", "io", "whatever")
	require.NoError(t, err)
	assert.Empty(t, id)

	called := false
	_, err = tr.TrackedToolUsage("builder", "Bash", "noop", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called, "scoped wrapper must still run fn when disabled")

	assert.Empty(t, tr.SessionID())
	assert.Zero(t, tr.EventCount())
	require.NoError(t, tr.Shutdown(time.Second))
}

func TestParentOverride(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.TrackedInvocation("planner", "orchestrator", "plan work", func() error {
		id, err := tr.RecordDecision("planner", "which backend?", []string{"sqlite", "postgres"}, "sqlite",
			WithRationale("embedded, zero ops"), WithoutParent())
		require.NoError(t, err)
		require.Equal(t, "000002", id)
		return nil
	})
	require.NoError(t, err)

	id, err := tr.RecordValidation("qa", "lint", "pass", WithChecks([]string{"gofmt", "vet"}), WithParent("000001"))
	require.NoError(t, err)

	require.NoError(t, tr.Shutdown(5*time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)

	for _, ev := range events {
		switch ev.EventID {
		case "000002":
			assert.Empty(t, ev.ParentEventID, "WithoutParent must suppress the open scope")
		case id:
			assert.Equal(t, "000001", ev.ParentEventID)
		}
	}
}

func TestScopedPanicStillClosesScopeAndPersists(t *testing.T) {
	tr := newTestTracker(t)

	require.Panics(t, func() {
		_, _ = tr.TrackedToolUsage("builder", "Bash", "explode", func() error {
			panic("tool blew up")
		})
	})

	id, err := tr.RecordError("builder", "panic", "tool blew up")
	require.NoError(t, err)

	require.NoError(t, tr.Shutdown(5*time.Second))

	events, err := sink.ReadSession(tr.SinkPath())
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, ev := range events {
		if ev.EventID == "000001" {
			p, ok := ev.Payload.(*schema.ToolUsagePayload)
			require.True(t, ok)
			require.NotNil(t, p.Success)
			assert.False(t, *p.Success)
			assert.GreaterOrEqual(t, p.DurationMS, 0.0)
		}
		if ev.EventID == id {
			assert.Empty(t, ev.ParentEventID, "scope must be closed after the panic")
		}
	}
}

func TestStatsAndCounters(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.RecordFileOperation("builder", "write", "main.go", WithSize(1024), WithLines(40))
	require.NoError(t, err)

	require.NoError(t, tr.Shutdown(5*time.Second))

	s := tr.Stats()
	assert.Equal(t, tr.SessionID(), s.SessionID)
	assert.Equal(t, int64(1), s.Allocated)
	assert.Equal(t, int64(1), s.Written)
	assert.Equal(t, int64(0), s.Dropped)
	assert.Equal(t, int64(1), tr.EventCount())
}

type countingRecorder struct {
	mu      sync.Mutex
	submits int
	types   []string
}

func (r *countingRecorder) RecordSubmit(_ context.Context, eventType string, _ time.Duration, _ bool) {
	r.mu.Lock()
	r.submits++
	r.types = append(r.types, eventType)
	r.mu.Unlock()
}

func (r *countingRecorder) RecordDrop(context.Context, string) {}

func (r *countingRecorder) RecordWrite(context.Context, int64) {}

func TestSubmitMetricsRecorded(t *testing.T) {
	rec := &countingRecorder{}
	tr := newTestTracker(t, withRecorder(rec))

	_, err := tr.RecordToolUsage("builder", "Bash", "run tests")
	require.NoError(t, err)
	_, err = tr.RecordError("builder", "io", "disk full")
	require.NoError(t, err)
	require.NoError(t, tr.Shutdown(time.Second))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.submits)
	assert.Equal(t, []string{"tool_usage", "error"}, rec.types)
}

func TestSubmitAfterShutdownSurfacesError(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Init()
	require.NoError(t, err)
	require.NoError(t, tr.Shutdown(time.Second))

	_, err = tr.RecordError("builder", "late", "after stop")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSessionIDFormatOverride(t *testing.T) {
	tr := newTestTracker(t, WithSessionIDFormat("2006-01-02"))
	assert.Contains(t, tr.SessionID(), time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, tr.Shutdown(time.Second))
}

func TestCustomSessionIDNamesSink(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(
		WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")),
		WithSinkDir(dir),
		WithSessionID("session_custom_01"),
	)
	require.NoError(t, err)

	_, err = tr.RecordContextSnapshot("manual")
	require.NoError(t, err)
	require.NoError(t, tr.Shutdown(time.Second))

	_, statErr := os.Stat(filepath.Join(dir, "session_custom_01.jsonl"))
	assert.NoError(t, statErr)
}

func TestResumedSessionContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	cfg := WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	tr, err := New(cfg, WithSinkDir(dir), WithSessionID("session_resume_01"))
	require.NoError(t, err)
	id, err := tr.RecordContextSnapshot("manual")
	require.NoError(t, err)
	assert.Equal(t, "000001", id)
	require.NoError(t, tr.Shutdown(time.Second))

	tr2, err := New(cfg, WithSinkDir(dir), WithSessionID("session_resume_01"))
	require.NoError(t, err)
	id, err = tr2.RecordContextSnapshot("manual")
	require.NoError(t, err)
	assert.Equal(t, "000002", id, "resume must not reissue ids")
	require.NoError(t, tr2.Shutdown(time.Second))

	events, err := sink.ReadSession(tr2.SinkPath())
	require.NoError(t, err)
	assert.Len(t, events, 2)

	result := sink.Verify(tr2.SinkPath())
	assert.True(t, result.Valid, "verify failed: %s", result.Error)
}

func TestScopedStrictRejectionStillRunsWork(t *testing.T) {
	tr := newTestTracker(t, WithStrictValidation(true))

	ran := false
	workErr := errors.New("fn failed")
	id, err := tr.TrackedToolUsage("builder", "", "", func() error {
		ran = true
		return workErr
	})

	assert.True(t, ran, "rejected scope must not suppress the work")
	assert.Empty(t, id)
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)
	require.ErrorIs(t, err, workErr)

	// The rejected event neither consumed an id nor reached the sink.
	nextID, err := tr.RecordToolUsage("builder", "Bash", "run tests")
	require.NoError(t, err)
	assert.Equal(t, "000001", nextID)

	require.NoError(t, tr.Shutdown(time.Second))

	result := sink.Verify(tr.SinkPath())
	assert.True(t, result.Valid, "verify failed: %s", result.Error)
	assert.Equal(t, 1, result.Lines)
}

func TestScopedInvocationStrictRejectionStillRunsWork(t *testing.T) {
	tr := newTestTracker(t, WithStrictValidation(true))

	ran := false
	_, err := tr.TrackedInvocation("", "orchestrator", "review diff", func() error {
		ran = true
		return nil
	})

	assert.True(t, ran)
	var se *schema.SchemaError
	require.ErrorAs(t, err, &se)
}
