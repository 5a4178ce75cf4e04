package agenttrack

import (
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/telemetry"
)

// Option configures a Tracker at creation time. Options override values
// loaded from the config file.
type Option func(*trackerConfig)

type trackerConfig struct {
	configPath string

	disabled          *bool
	sinkDir           string
	compress          *bool
	validationEnabled *bool
	strict            *bool
	sessionID         string
	sessionIDFormat   string
	queueCapacity     int
	rotateMaxBytes    *int64
	maxSubmitLatency  *time.Duration
	metrics           telemetry.Recorder
	metricsEnabled    *bool
}

// WithConfigFile sets the path to a YAML config file. Without it, the
// AGENTTRACK_CONFIG env var and ~/.agenttrack/config.yaml are tried.
func WithConfigFile(path string) Option {
	return func(c *trackerConfig) { c.configPath = path }
}

// WithDisabled turns the whole pipeline off: every record call becomes a
// no-op returning an empty event id.
func WithDisabled() Option {
	on := true
	return func(c *trackerConfig) { c.disabled = &on }
}

// WithSinkDir sets the directory holding session sink files.
func WithSinkDir(dir string) Option {
	return func(c *trackerConfig) { c.sinkDir = dir }
}

// WithCompression pipes the sink through gzip.
func WithCompression(on bool) Option {
	return func(c *trackerConfig) { c.compress = &on }
}

// WithValidation toggles schema validation of candidate events. Disable it
// only for call sites where construction is already trusted.
func WithValidation(on bool) Option {
	return func(c *trackerConfig) { c.validationEnabled = &on }
}

// WithStrictValidation selects strict mode: an event failing its kind's
// schema is rejected and the error surfaced to the caller. The default is
// lenient mode, which persists the event with a warning annotation.
func WithStrictValidation(on bool) Option {
	return func(c *trackerConfig) { c.strict = &on }
}

// WithSessionID uses a caller-supplied session id instead of generating
// one from the start time.
func WithSessionID(id string) Option {
	return func(c *trackerConfig) { c.sessionID = id }
}

// WithSessionIDFormat overrides the time layout embedded in generated
// session ids.
func WithSessionIDFormat(layout string) Option {
	return func(c *trackerConfig) { c.sessionIDFormat = layout }
}

// WithQueueCapacity bounds the in-memory buffer between producers and the
// background writer.
func WithQueueCapacity(n int) Option {
	return func(c *trackerConfig) { c.queueCapacity = n }
}

// WithRotation rotates the sink to a numbered part file once it holds
// maxBytes of serialized events. Zero disables rotation.
func WithRotation(maxBytes int64) Option {
	return func(c *trackerConfig) { c.rotateMaxBytes = &maxBytes }
}

// WithMaxSubmitLatency sets the self-monitoring budget for producer
// submission latency. Submissions over the budget are counted in metrics,
// never rejected.
func WithMaxSubmitLatency(d time.Duration) Option {
	return func(c *trackerConfig) { c.maxSubmitLatency = &d }
}

// withRecorder installs a specific telemetry recorder. Tests use it to
// observe pipeline counters directly.
func withRecorder(r telemetry.Recorder) Option {
	return func(c *trackerConfig) { c.metrics = r }
}

// WithOTelMetrics enables OpenTelemetry self-monitoring against the global
// meter provider.
func WithOTelMetrics() Option {
	on := true
	return func(c *trackerConfig) { c.metricsEnabled = &on }
}

// RecordOption configures a single record call.
type RecordOption func(*recordConfig)

type recordConfig struct {
	parent    string
	noParent  bool
	ctx       map[string]any
	metadata  map[string]any
	duration  *time.Duration
	success   *bool
	sizeBytes int64
	lines     int
	rationale string
	severity  string
	recover   *bool
	snapshot  map[string]any
	checks    []string
}

// WithParent overrides the hierarchy tracker and links the event to the
// given event id.
func WithParent(eventID string) RecordOption {
	return func(r *recordConfig) { r.parent = eventID }
}

// WithoutParent records the event at the top level even when a scope is
// open.
func WithoutParent() RecordOption {
	return func(r *recordConfig) { r.noParent = true }
}

// WithContext attaches a context map to an agent invocation.
func WithContext(ctx map[string]any) RecordOption {
	return func(r *recordConfig) { r.ctx = ctx }
}

// WithMetadata attaches a metadata map to an agent invocation.
func WithMetadata(md map[string]any) RecordOption {
	return func(r *recordConfig) { r.metadata = md }
}

// WithDuration stamps an explicit duration on a tool usage.
func WithDuration(d time.Duration) RecordOption {
	return func(r *recordConfig) { r.duration = &d }
}

// WithSuccess stamps the success flag on a tool usage.
func WithSuccess(ok bool) RecordOption {
	return func(r *recordConfig) { r.success = &ok }
}

// WithSize stamps the byte size on a file operation.
func WithSize(bytes int64) RecordOption {
	return func(r *recordConfig) { r.sizeBytes = bytes }
}

// WithLines stamps the line count on a file operation.
func WithLines(n int) RecordOption {
	return func(r *recordConfig) { r.lines = n }
}

// WithRationale attaches the reasoning behind a decision.
func WithRationale(s string) RecordOption {
	return func(r *recordConfig) { r.rationale = s }
}

// WithSeverity stamps a severity level on an error event.
func WithSeverity(s string) RecordOption {
	return func(r *recordConfig) { r.severity = s }
}

// WithRecoverable stamps the recoverable flag on an error event.
func WithRecoverable(ok bool) RecordOption {
	return func(r *recordConfig) { r.recover = &ok }
}

// WithSnapshot attaches the checkpoint payload to a context snapshot.
func WithSnapshot(snap map[string]any) RecordOption {
	return func(r *recordConfig) { r.snapshot = snap }
}

// WithChecks attaches the individual check names to a validation event.
func WithChecks(checks []string) RecordOption {
	return func(r *recordConfig) { r.checks = checks }
}
