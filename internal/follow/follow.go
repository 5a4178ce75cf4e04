// Package follow tails a growing session sink file and decodes appended
// events as they land. It prefers fsnotify and falls back to polling when
// the filesystem does not deliver notifications (e.g. NFS).
package follow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// debounceDefault coalesces bursts of write notifications into one read.
const debounceDefault = 100 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 2 * time.Second

// ErrCompressedSink is returned for .gz sinks, which are written as a
// single stream and cannot be tailed incrementally.
var ErrCompressedSink = errors.New("follow: cannot follow a compressed sink")

// Handler receives each decoded event in file order.
type Handler func(ev schema.Event)

// Follower tails one sink file. Existing content is emitted first, then
// appended events as the writer flushes them. When the writer rotates to
// a new part file in the same directory, the follower drains the current
// file and switches to the new part.
type Follower struct {
	path     string
	handler  Handler
	debounce time.Duration
	poll     time.Duration

	offset  int64
	partial []byte
}

// New creates a follower for the sink file at path.
func New(path string, handler Handler) (*Follower, error) {
	if strings.HasSuffix(path, ".gz") {
		return nil, ErrCompressedSink
	}
	return &Follower{
		path:     path,
		handler:  handler,
		debounce: debounceDefault,
		poll:     pollDefault,
	}, nil
}

// Run tails the file until ctx is cancelled. It blocks; run it on its own
// goroutine if the caller has other work.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.drain(); err != nil && !os.IsNotExist(err) {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return f.runPolling(ctx)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: the file may not exist yet and
	// rotation creates siblings.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return f.runPolling(ctx)
	}

	// Single debounce timer, reset on each write event.
	debounceTimer := time.NewTimer(f.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			if err := f.drain(); err != nil && !os.IsNotExist(err) {
				return err
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Name == f.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)):
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(f.debounce)

			case event.Has(fsnotify.Create) && f.isNextPart(event.Name):
				if err := f.drain(); err != nil && !os.IsNotExist(err) {
					return err
				}
				f.switchTo(event.Name)
				debounceTimer.Reset(f.debounce)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "follow: watcher: %v\n", werr)
		}
	}
}

// runPolling stats the file on an interval and reads any growth.
func (f *Follower) runPolling(ctx context.Context) error {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(f.path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return err
			}
			if info.Size() > f.offset {
				if err := f.drain(); err != nil {
					return err
				}
			}
			if next := f.findNextPart(); next != "" {
				f.switchTo(next)
			}
		}
	}
}

// drain reads everything appended since the last offset and emits each
// complete line. A trailing partial line is carried to the next read.
func (f *Follower) drain() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("follow: seek %s: %w", f.path, err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("follow: read %s: %w", f.path, err)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := buf[:idx]
		buf = buf[idx+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev schema.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Fprintf(os.Stderr, "follow: skipping malformed line: %v\n", err)
			continue
		}
		f.handler(ev)
	}
	f.partial = append([]byte(nil), buf...)
	return nil
}

// switchTo starts tailing a new part file from the beginning.
func (f *Follower) switchTo(path string) {
	f.path = path
	f.offset = 0
	f.partial = nil
}

// isNextPart reports whether name is a later rotation part of the session
// being followed.
func (f *Follower) isNextPart(name string) bool {
	if filepath.Dir(name) != filepath.Dir(f.path) {
		return false
	}
	cur := filepath.Base(f.path)
	cand := filepath.Base(name)
	prefix, ok := sessionPrefix(cur)
	if !ok || !strings.HasPrefix(cand, prefix) {
		return false
	}
	return partIndex(cand, prefix) > partIndex(cur, prefix)
}

// findNextPart scans the directory for the next later part. Used by the
// polling fallback, which gets no create notifications.
func (f *Follower) findNextPart() string {
	entries, err := os.ReadDir(filepath.Dir(f.path))
	if err != nil {
		return ""
	}
	cur := filepath.Base(f.path)
	prefix, ok := sessionPrefix(cur)
	if !ok {
		return ""
	}
	curIdx := partIndex(cur, prefix)
	best, bestIdx := "", -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		idx := partIndex(name, prefix)
		if idx <= curIdx {
			continue
		}
		if best == "" || idx < bestIdx {
			best, bestIdx = name, idx
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(f.path), best)
}

// sessionPrefix extracts "<session>." from a sink file name.
func sessionPrefix(name string) (string, bool) {
	idx := strings.Index(name, ".")
	if idx <= 0 {
		return "", false
	}
	return name[:idx+1], true
}

// partIndex parses the rotation index from a sink file name. The base
// file ("<session>.jsonl") is part 0; rotated files carry an explicit
// "partN" segment.
func partIndex(name, prefix string) int {
	rest := strings.TrimPrefix(name, prefix)
	if !strings.HasPrefix(rest, "part") {
		return 0
	}
	digits := strings.TrimPrefix(rest, "part")
	if dot := strings.Index(digits, "."); dot >= 0 {
		digits = digits[:dot]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
