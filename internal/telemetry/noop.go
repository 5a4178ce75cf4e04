package telemetry

import (
	"context"
	"time"
)

// Noop is a Recorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type Noop struct{}

// Compile-time interface check.
var _ Recorder = Noop{}

// RecordSubmit does nothing.
func (Noop) RecordSubmit(_ context.Context, _ string, _ time.Duration, _ bool) {}

// RecordDrop does nothing.
func (Noop) RecordDrop(_ context.Context, _ string) {}

// RecordWrite does nothing.
func (Noop) RecordWrite(_ context.Context, _ int64) {}
