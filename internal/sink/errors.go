package sink

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when an operation requires a running
// pipeline and none was started.
var ErrNotInitialized = errors.New("tracking pipeline not initialized")

// ErrStopped is returned for submissions after the writer drained and
// closed. Writes after shutdown fail, they are never silently discarded.
var ErrStopped = errors.New("tracking pipeline stopped")

// ErrQueueFull is returned when the bounded queue is saturated and the
// submitted event was dropped. Drops are counted and reportable via
// Writer.Dropped.
var ErrQueueFull = errors.New("tracking queue full, event dropped")

// DrainTimeoutError reports a shutdown that did not flush every queued
// event inside its timeout.
type DrainTimeoutError struct {
	Unflushed int
}

func (e *DrainTimeoutError) Error() string {
	return fmt.Sprintf("tracking shutdown timed out with %d events unflushed", e.Unflushed)
}
