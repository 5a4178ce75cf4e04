package sink

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// maxLineBytes bounds a single sink line; context snapshots can carry large
// payloads.
const maxLineBytes = 4 << 20

// openSink opens a sink file for reading, transparently decompressing
// .gz files.
func openSink(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip sink: %w", err)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *gzipReadCloser) Close() error {
	gzErr := r.gz.Close()
	if err := r.f.Close(); err != nil {
		return err
	}
	return gzErr
}

// ReadSession parses every line of a session sink file into typed events.
// A malformed line is an error, not a skip: the sink is the audit trail,
// and a line this reader cannot parse is a line worth surfacing.
func ReadSession(path string) ([]schema.Event, error) {
	r, err := openSink(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var events []schema.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev schema.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sink: %w", err)
	}
	return events, nil
}

// LastSequence reports the highest event sequence number already persisted
// for a session, across all rotation parts in dir. Used to continue the id
// sequence when resuming a session. Best effort: unreadable parts and
// unparseable ids count as zero.
func LastSequence(dir, sessionID string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var max int64
	prefix := sessionID + "."
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		events, err := ReadSession(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for i := range events {
			if n, err := schema.Seq(events[i].EventID); err == nil && n > max {
				max = n
			}
		}
	}
	return max
}
