// Package sink persists events as newline-delimited JSON, one file per
// session, optionally gzip-compressed. A single background consumer owns
// the file; producers only touch the bounded queue.
package sink

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
	"github.com/jcmd13/subAgentTracking-sub001/internal/telemetry"
)

// Writer states. Transitions are one-way:
// Uninitialized → Running → Draining → Stopped.
const (
	StateUninitialized int32 = iota
	StateRunning
	StateDraining
	StateStopped
)

const (
	// queueDefault bounds producer memory between bursts and drain.
	queueDefault = 1024

	// flushInterval is how often the consumer flushes buffered bytes when
	// the queue is idle. It also bounds how long the consumer waits before
	// re-checking for a shutdown signal.
	flushInterval = 200 * time.Millisecond
)

// Options configure a session writer.
type Options struct {
	// Dir is the directory holding session sink files. Created if absent.
	Dir string

	// SessionID names the sink file.
	SessionID string

	// Compress pipes the NDJSON stream through gzip before it touches disk.
	Compress bool

	// QueueCapacity bounds the in-memory buffer between producers and the
	// consumer. Zero selects the default.
	QueueCapacity int

	// RotateMaxBytes rotates to a numbered part file once the current part
	// holds this many serialized bytes. Zero disables rotation. Sizes are
	// counted before compression.
	RotateMaxBytes int64

	// Metrics receives write and drop observations. Nil selects a no-op.
	Metrics telemetry.Recorder
}

// entry is a validated event plus its enqueue timestamp, held between
// producer and consumer. The consumer exclusively owns the event after
// dequeue.
type entry struct {
	ev       *schema.Event
	enqueued time.Time
}

// Writer drains a bounded queue onto one session sink file.
//
// Saturation policy: enqueue never blocks. When the queue is full the
// newest event is dropped, the drop is counted, and the producer gets
// ErrQueueFull. This favors a live workflow over a complete trail; the
// loss is reportable, never silent.
type Writer struct {
	opts    Options
	queue   chan entry
	state   atomic.Int32
	stop    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
	written atomic.Int64
	metrics telemetry.Recorder

	// submitMu orders state check plus enqueue against the shutdown
	// transition. Without it a producer could pass the Running check,
	// lose the CPU, and enqueue after the final drain already emptied
	// the queue, losing the event silently.
	submitMu sync.RWMutex

	// consumer-owned, never touched by producers
	file      *os.File
	gz        *gzip.Writer
	buf       *bufio.Writer
	part      atomic.Int32
	partBytes int64
}

// New prepares a writer in the Uninitialized state. Start opens the sink.
func New(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("sink: directory is required")
	}
	if opts.SessionID == "" {
		return nil, fmt.Errorf("sink: session id is required")
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = queueDefault
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.Noop{}
	}
	w := &Writer{
		opts:  opts,
		queue: make(chan entry, opts.QueueCapacity),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	w.metrics = metrics
	w.part.Store(1)
	return w, nil
}

// Filename returns the sink file name for a session part. Part 1 is the
// bare session file; later parts carry a .partN infix.
func Filename(sessionID string, part int, compress bool) string {
	name := sessionID + ".jsonl"
	if part > 1 {
		name = fmt.Sprintf("%s.part%d.jsonl", sessionID, part)
	}
	if compress {
		name += ".gz"
	}
	return name
}

// Path returns the current sink file path.
func (w *Writer) Path() string {
	return filepath.Join(w.opts.Dir, Filename(w.opts.SessionID, int(w.part.Load()), w.opts.Compress))
}

// State returns the current lifecycle state.
func (w *Writer) State() int32 {
	return w.state.Load()
}

// Start opens the sink file and launches the single consumer.
// At most one Start succeeds; later calls return ErrStopped or nil.
func (w *Writer) Start() error {
	if !w.state.CompareAndSwap(StateUninitialized, StateRunning) {
		if w.state.Load() == StateRunning {
			return nil
		}
		return ErrStopped
	}

	if err := os.MkdirAll(w.opts.Dir, 0700); err != nil {
		w.state.Store(StateStopped)
		close(w.done)
		return fmt.Errorf("sink: create directory: %w", err)
	}
	if err := w.openPart(); err != nil {
		w.state.Store(StateStopped)
		close(w.done)
		return err
	}

	go w.consume()
	return nil
}

// Submit enqueues an event for the background consumer. It returns in
// well under a millisecond: on saturation the event is dropped and
// ErrQueueFull returned rather than blocking the caller.
func (w *Writer) Submit(ev *schema.Event) error {
	w.submitMu.RLock()
	defer w.submitMu.RUnlock()

	switch w.state.Load() {
	case StateUninitialized:
		return ErrNotInitialized
	case StateDraining, StateStopped:
		return ErrStopped
	}

	select {
	case w.queue <- entry{ev: ev, enqueued: time.Now()}:
		return nil
	default:
		w.dropped.Add(1)
		w.metrics.RecordDrop(context.Background(), string(ev.Type))
		return ErrQueueFull
	}
}

// Shutdown transitions Running → Draining and blocks until the consumer
// drained the queue and closed the sink, or the timeout elapsed. On
// timeout the remaining queued events are reported as lost.
func (w *Writer) Shutdown(timeout time.Duration) error {
	// Taking the write lock waits out any Submit that already passed its
	// state check, so every accepted event is in the queue before the
	// drain signal fires.
	w.submitMu.Lock()
	swapped := w.state.CompareAndSwap(StateRunning, StateDraining)
	w.submitMu.Unlock()

	switch {
	case swapped:
		close(w.stop)
	case w.state.Load() == StateUninitialized:
		return ErrNotInitialized
	}

	select {
	case <-w.done:
		w.state.Store(StateStopped)
		return nil
	case <-time.After(timeout):
		w.state.Store(StateStopped)
		return &DrainTimeoutError{Unflushed: len(w.queue)}
	}
}

// Written reports how many events reached the sink.
func (w *Writer) Written() int64 {
	return w.written.Load()
}

// Dropped reports how many events were lost to queue saturation.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// QueueDepth reports how many events are waiting for the consumer.
func (w *Writer) QueueDepth() int {
	return len(w.queue)
}

// consume is the single background consumer loop. It dequeues in FIFO
// order, flushes when idle, and on the shutdown signal drains whatever is
// buffered before closing the sink.
func (w *Writer) consume() {
	defer close(w.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-w.queue:
			w.append(e)
		case <-ticker.C:
			w.flush()
		case <-w.stop:
			w.drain()
			w.closeSink()
			return
		}
	}
}

// drain empties the queue without waiting for more producers.
func (w *Writer) drain() {
	for {
		select {
		case e := <-w.queue:
			w.append(e)
		default:
			return
		}
	}
}

// append serializes one event to a JSON line and writes it. An I/O failure
// is isolated to this event: it is reported on stderr and the consumer
// moves on, so one bad write never takes the pipeline down.
func (w *Writer) append(e entry) {
	line, err := json.Marshal(e.ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agenttrack: marshal event %s: %v\n", e.ev.EventID, err)
		return
	}

	if w.opts.RotateMaxBytes > 0 && w.partBytes > 0 &&
		w.partBytes+int64(len(line))+1 > w.opts.RotateMaxBytes {
		w.rotate()
	}

	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "agenttrack: sink write %s: %v\n", e.ev.EventID, err)
		return
	}

	w.partBytes += int64(len(line)) + 1
	w.written.Add(1)
	w.metrics.RecordWrite(context.Background(), int64(len(line)))
}

// flush pushes buffered bytes toward the file so a crash loses at most one
// flush interval of events.
func (w *Writer) flush() {
	if err := w.buf.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "agenttrack: sink flush: %v\n", err)
		return
	}
	if w.gz != nil {
		if err := w.gz.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: sink gzip flush: %v\n", err)
		}
	}
}

// openPart opens the current part file and layers the write stack:
// bufio → (gzip) → file.
func (w *Writer) openPart() error {
	path := w.Path()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("sink: open file: %w", err)
	}
	w.file = file
	w.partBytes = 0
	if w.opts.Compress {
		w.gz = gzip.NewWriter(file)
		w.buf = bufio.NewWriter(w.gz)
	} else {
		w.gz = nil
		w.buf = bufio.NewWriter(file)
	}
	return nil
}

// rotate opens the next numbered part, then retires the current one. On
// open failure the writer keeps appending to the old part rather than
// dropping events.
func (w *Writer) rotate() {
	prevFile, prevGz, prevBuf := w.file, w.gz, w.buf
	prevBytes := w.partBytes
	w.part.Add(1)
	if err := w.openPart(); err != nil {
		fmt.Fprintf(os.Stderr, "agenttrack: sink rotate: %v\n", err)
		w.part.Add(-1)
		w.file, w.gz, w.buf = prevFile, prevGz, prevBuf
		w.partBytes = prevBytes
		return
	}
	closeStack(prevFile, prevGz, prevBuf)
}

// closeSink finalizes the sink at the end of a drain.
func (w *Writer) closeSink() {
	closeStack(w.file, w.gz, w.buf)
	w.file, w.gz, w.buf = nil, nil, nil
}

// closeStack flushes and closes one write stack in order: buffer, gzip
// trailer, then file sync and close.
func closeStack(file *os.File, gz *gzip.Writer, buf *bufio.Writer) {
	if buf != nil {
		if err := buf.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: sink flush: %v\n", err)
		}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: sink gzip close: %v\n", err)
		}
	}
	if file != nil {
		if err := file.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: sink sync: %v\n", err)
		}
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "agenttrack: sink close: %v\n", err)
		}
	}
}
