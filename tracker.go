package agenttrack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/config"
	"github.com/jcmd13/subAgentTracking-sub001/internal/identity"
	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
	"github.com/jcmd13/subAgentTracking-sub001/internal/scope"
	"github.com/jcmd13/subAgentTracking-sub001/internal/sink"
	"github.com/jcmd13/subAgentTracking-sub001/internal/telemetry"
)

// Sentinel errors surfaced by the pipeline, re-exported from the sink so
// callers match with errors.Is without importing internal packages.
var (
	ErrNotInitialized = sink.ErrNotInitialized
	ErrStopped        = sink.ErrStopped
	ErrQueueFull      = sink.ErrQueueFull
)

// DefaultShutdownTimeout bounds the drain performed by the best-effort
// exit hook.
const DefaultShutdownTimeout = 5 * time.Second

// Tracker owns the event pipeline for one session: the identifier
// allocator, the hierarchy stack, and the durable writer. Construct it
// once and pass it by reference; it is safe for concurrent producers.
type Tracker struct {
	disabled         bool
	validate         bool
	strict           bool
	maxSubmitLatency time.Duration

	session *identity.Session
	stack   *scope.Stack
	writer  *sink.Writer
	metrics telemetry.Recorder

	initOnce sync.Once
	initErr  error
}

// New creates a Tracker from the config file (if any) and options. The
// pipeline starts lazily on the first record call, or explicitly via Init.
func New(opts ...Option) (*Tracker, error) {
	var tc trackerConfig
	for _, o := range opts {
		o(&tc)
	}

	fileCfg, err := config.Load(tc.configPath)
	if err != nil {
		return nil, fmt.Errorf("agenttrack: %w", err)
	}

	t := &Tracker{
		disabled: !fileCfg.LoggingEnabled(),
		validate: fileCfg.ValidationEnabled(),
		metrics:  telemetry.Noop{},
	}

	sinkDir := ""
	compress := false
	queueCapacity := 0
	var rotateMaxBytes int64
	metricsEnabled := false
	sessionIDFormat := ""
	if fileCfg != nil {
		sinkDir = fileCfg.SinkDir
		compress = fileCfg.Compress
		t.strict = fileCfg.Validation.Strict
		queueCapacity = fileCfg.QueueCapacity
		rotateMaxBytes = fileCfg.RotateMaxBytes
		t.maxSubmitLatency = time.Duration(fileCfg.MaxSubmitLatency)
		metricsEnabled = fileCfg.Metrics
		sessionIDFormat = fileCfg.SessionIDFormat
	}

	if tc.disabled != nil {
		t.disabled = *tc.disabled
	}
	if tc.validationEnabled != nil {
		t.validate = *tc.validationEnabled
	}
	if tc.strict != nil {
		t.strict = *tc.strict
	}
	if tc.sinkDir != "" {
		sinkDir = tc.sinkDir
	}
	if tc.compress != nil {
		compress = *tc.compress
	}
	if tc.queueCapacity > 0 {
		queueCapacity = tc.queueCapacity
	}
	if tc.rotateMaxBytes != nil {
		rotateMaxBytes = *tc.rotateMaxBytes
	}
	if tc.maxSubmitLatency != nil {
		t.maxSubmitLatency = *tc.maxSubmitLatency
	}
	if tc.sessionIDFormat != "" {
		sessionIDFormat = tc.sessionIDFormat
	}
	if tc.metricsEnabled != nil {
		metricsEnabled = *tc.metricsEnabled
	}
	if metricsEnabled {
		t.metrics = telemetry.NewRecorder()
	}
	if tc.metrics != nil {
		t.metrics = tc.metrics
	}

	if t.disabled {
		return t, nil
	}

	if sinkDir == "" {
		sinkDir = defaultSinkDir()
	}

	if tc.sessionID != "" {
		t.session = identity.Resume(tc.sessionID)
		// Continue the id sequence past anything already on disk so a
		// resumed session never reissues an event id.
		if last := sink.LastSequence(sinkDir, tc.sessionID); last > 0 {
			t.session.SkipTo(last)
		}
	} else {
		t.session = identity.NewSession(sessionIDFormat)
	}
	t.stack = scope.NewStack()

	writer, err := sink.New(sink.Options{
		Dir:            sinkDir,
		SessionID:      t.session.ID,
		Compress:       compress,
		QueueCapacity:  queueCapacity,
		RotateMaxBytes: rotateMaxBytes,
		Metrics:        t.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("agenttrack: %w", err)
	}
	t.writer = writer

	return t, nil
}

// defaultSinkDir is ~/.agenttrack/sessions, or ./.agenttrack when the home
// directory cannot be resolved.
func defaultSinkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agenttrack"
	}
	return filepath.Join(home, ".agenttrack", "sessions")
}

// Init starts the pipeline: opens the sink and launches the background
// writer. Idempotent and safe for concurrent first callers; while running
// it returns the existing session id without side effects.
func (t *Tracker) Init() (string, error) {
	if t.disabled {
		return "", nil
	}
	t.initOnce.Do(func() {
		t.initErr = t.writer.Start()
	})
	if t.initErr != nil {
		return "", t.initErr
	}
	return t.session.ID, nil
}

// Shutdown drains the queue and closes the sink, blocking until done or
// the timeout elapses. On timeout the returned error reports how many
// events were not flushed. Safe to call more than once.
func (t *Tracker) Shutdown(timeout time.Duration) error {
	if t.disabled || t.writer == nil {
		return nil
	}
	if t.writer.State() == sink.StateUninitialized {
		return nil
	}
	return t.writer.Shutdown(timeout)
}

// SessionID returns the session identifier, or "" for a disabled
// tracker.
func (t *Tracker) SessionID() string {
	if t.session == nil {
		return ""
	}
	return t.session.ID
}

// EventCount reports how many event ids this session has allocated. Safe
// to call at any time; zero before the first record call.
func (t *Tracker) EventCount() int64 {
	if t.session == nil {
		return 0
	}
	return t.session.EventCount()
}

// SinkPath returns the current sink file path, or "" for a disabled
// tracker.
func (t *Tracker) SinkPath() string {
	if t.writer == nil {
		return ""
	}
	return t.writer.Path()
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	SessionID string `json:"session_id"`
	Allocated int64  `json:"allocated"`
	Written   int64  `json:"written"`
	Dropped   int64  `json:"dropped"`
	Queued    int    `json:"queued"`
}

// Stats reports the pipeline counters. Safe to call at any time.
func (t *Tracker) Stats() Stats {
	s := Stats{SessionID: t.SessionID(), Allocated: t.EventCount()}
	if t.writer != nil {
		s.Written = t.writer.Written()
		s.Dropped = t.writer.Dropped()
		s.Queued = t.writer.QueueDepth()
	}
	return s
}

// record is the shared producer path: validate the payload, allocate the
// event id, resolve the parent, stamp and submit. Returns the assigned
// event id.
func (t *Tracker) record(p schema.Payload, rc *recordConfig) (string, error) {
	if t.disabled {
		return "", nil
	}

	start := time.Now()

	// Payload schema runs before id allocation so a strict rejection never
	// leaves a gap in the sequence.
	warning := ""
	if t.validate {
		if err := schema.ValidatePayload(p); err != nil {
			if t.strict {
				return "", err
			}
			warning = err.Error()
		}
	}

	if _, err := t.Init(); err != nil {
		return "", err
	}

	eventID := t.session.NextEventID()

	parent := ""
	switch {
	case rc.noParent:
	case rc.parent != "":
		parent = rc.parent
	default:
		if top, ok := t.stack.Current(); ok {
			parent = top
		}
	}

	ev := &schema.Event{
		Timestamp:     schema.Now(),
		SessionID:     t.session.ID,
		EventID:       eventID,
		ParentEventID: parent,
		Type:          p.Kind(),
		Payload:       p,
		Warning:       warning,
	}

	err := t.writer.Submit(ev)

	latency := time.Since(start)
	over := t.maxSubmitLatency > 0 && latency > t.maxSubmitLatency
	t.metrics.RecordSubmit(context.Background(), string(p.Kind()), latency, over)

	if err != nil {
		return "", err
	}
	return eventID, nil
}

// reportSubmitFailure surfaces a scoped-exit submission failure on the
// fallback channel; the scope already closed, so there is no caller left
// to return the error to.
func reportSubmitFailure(eventID string, err error) {
	fmt.Fprintf(os.Stderr, "agenttrack: submit event %s: %v\n", eventID, err)
}

// submitWithID is the exit half of a scoped operation: the id was
// allocated when the scope opened, the event is persisted when it closes.
func (t *Tracker) submitWithID(eventID, parent string, p schema.Payload, warning string) error {
	ev := &schema.Event{
		Timestamp:     schema.Now(),
		SessionID:     t.session.ID,
		EventID:       eventID,
		ParentEventID: parent,
		Type:          p.Kind(),
		Payload:       p,
		Warning:       warning,
	}
	return t.writer.Submit(ev)
}
