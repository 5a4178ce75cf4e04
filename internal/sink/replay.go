package sink

import (
	"sort"
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

// ReplayFilter holds filtering criteria for session replay.
type ReplayFilter struct {
	Agent string
	Type  schema.EventType
	From  time.Time // zero value = no lower bound
	To    time.Time // zero value = no upper bound
}

// ReplaySummary holds event counts and metadata for a replayed session.
type ReplaySummary struct {
	Total          int            `json:"total"`
	ByType         map[string]int `json:"by_type"`
	Warnings       int            `json:"warnings"`
	FirstTimestamp string         `json:"first_timestamp"`
	LastTimestamp  string         `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary for a session replay.
type ReplayResult struct {
	SessionID string         `json:"session_id"`
	Entries   []schema.Event `json:"entries"`
	Summary   ReplaySummary  `json:"summary"`
}

// Replay reads a session sink and returns entries matching the filter, in
// event id order. Sink line order is not id order: a scoped operation is
// persisted after its children, so entries are sorted by sequence number
// before filtering and the summary reflects that order.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	events, err := ReadSession(path)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, aerr := schema.Seq(events[i].EventID)
		b, berr := schema.Seq(events[j].EventID)
		if aerr != nil || berr != nil {
			return aerr == nil && berr != nil
		}
		return a < b
	})

	result := &ReplayResult{
		Summary: ReplaySummary{ByType: make(map[string]int)},
	}

	for _, ev := range events {
		if result.SessionID == "" {
			result.SessionID = ev.SessionID
		}

		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		if filter.Agent != "" && AgentOf(&ev) != filter.Agent {
			continue
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(schema.TimestampFormat, ev.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, ev)
		updateSummary(&result.Summary, ev)
	}

	return result, nil
}

func updateSummary(s *ReplaySummary, ev schema.Event) {
	s.Total++
	s.ByType[string(ev.Type)]++
	if ev.Warning != "" {
		s.Warnings++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = ev.Timestamp
	}
	s.LastTimestamp = ev.Timestamp
}

// AgentOf returns the acting agent recorded in an event's payload, or ""
// for payloads that carry no agent (context snapshots).
func AgentOf(ev *schema.Event) string {
	switch p := ev.Payload.(type) {
	case *schema.InvocationPayload:
		return p.AgentName
	case *schema.ToolUsagePayload:
		return p.Agent
	case *schema.FileOperationPayload:
		return p.Agent
	case *schema.DecisionPayload:
		return p.Agent
	case *schema.ErrorPayload:
		return p.Agent
	case *schema.ValidationPayload:
		return p.Agent
	default:
		return ""
	}
}
