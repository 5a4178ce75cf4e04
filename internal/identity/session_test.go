package identity

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewSessionGeneratesID(t *testing.T) {
	s := NewSession("")
	if s.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if !strings.HasPrefix(s.ID, "session_") {
		t.Errorf("expected session_ prefix, got %q", s.ID)
	}
}

func TestNewSessionCustomLayout(t *testing.T) {
	s := NewSession("2006-01-02")
	want := "session_" + time.Now().UTC().Format("2006-01-02") + "_"
	if !strings.HasPrefix(s.ID, want) {
		t.Errorf("expected prefix %q, got %q", want, s.ID)
	}
}

func TestNewSessionIDsDoNotCollide(t *testing.T) {
	a := NewSession("")
	b := NewSession("")
	if a.ID == b.ID {
		t.Errorf("two sessions in the same instant collided: %q", a.ID)
	}
}

func TestNewSessionStartTime(t *testing.T) {
	before := time.Now().UTC()
	s := NewSession("")
	after := time.Now().UTC()

	if s.StartTime.Before(before) || s.StartTime.After(after) {
		t.Errorf("start_time %v not between %v and %v", s.StartTime, before, after)
	}
}

func TestNextEventIDSequence(t *testing.T) {
	s := NewSession("")
	for i := 1; i <= 3; i++ {
		got := s.NextEventID()
		want := FormatEventID(int64(i))
		if got != want {
			t.Fatalf("call %d: expected %q, got %q", i, want, got)
		}
	}
	if s.EventCount() != 3 {
		t.Fatalf("expected event count 3, got %d", s.EventCount())
	}
}

func TestSkipToContinuesSequence(t *testing.T) {
	s := Resume("session_resume_x")
	s.SkipTo(41)
	if got := s.NextEventID(); got != FormatEventID(42) {
		t.Fatalf("expected 000042 after SkipTo(41), got %q", got)
	}

	// SkipTo never moves the counter backward.
	s.SkipTo(5)
	if got := s.NextEventID(); got != FormatEventID(43) {
		t.Fatalf("expected 000043, got %q", got)
	}
}

func TestNextEventIDConcurrentUniqueness(t *testing.T) {
	const producers = 8
	const perProducer = 250

	s := NewSession("")
	var mu sync.Mutex
	var wg sync.WaitGroup
	ids := make([]string, 0, producers*perProducer)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perProducer)
			for i := 0; i < perProducer; i++ {
				local = append(local, s.NextEventID())
			}
			mu.Lock()
			ids = append(ids, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate event id %q", ids[i])
		}
	}
	if last := ids[len(ids)-1]; last != FormatEventID(producers*perProducer) {
		t.Fatalf("expected max id %q, got %q", FormatEventID(producers*perProducer), last)
	}
}
