package sink

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jcmd13/subAgentTracking-sub001/internal/schema"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Session: %s | No entries found.\n", result.SessionID)
	}

	var b strings.Builder

	first := formatDate(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Session: %s | %s–%s UTC\n", result.SessionID, first, last))
	b.WriteString(separator + "\n")

	for i := range result.Entries {
		ev := &result.Entries[i]
		ts := formatTimeOnly(ev.Timestamp)
		agent := truncate(AgentOf(ev), 14)
		detail := truncate(detailOf(ev), 42)

		parent := ""
		if ev.ParentEventID != "" {
			parent = "  ↳ " + ev.ParentEventID
		}
		tag := ""
		if ev.Warning != "" {
			tag = "  [warning]"
		}

		b.WriteString(fmt.Sprintf("%-9s %-7s %-17s %-14s %-42s%s%s\n",
			ts, ev.EventID, ev.Type, agent, detail, parent, tag))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

// detailOf picks the most telling payload field for the one-line timeline.
func detailOf(ev *schema.Event) string {
	switch p := ev.Payload.(type) {
	case *schema.InvocationPayload:
		return p.Reason
	case *schema.ToolUsagePayload:
		return p.Tool + ": " + p.Description
	case *schema.FileOperationPayload:
		return p.Operation + " " + p.Path
	case *schema.DecisionPayload:
		return p.Question + " → " + p.Selected
	case *schema.ErrorPayload:
		return p.ErrorType + ": " + p.Message
	case *schema.SnapshotPayload:
		return "trigger=" + p.Trigger
	case *schema.ValidationPayload:
		return p.ValidationType + ": " + p.Result
	default:
		return ""
	}
}

func formatSummary(s ReplaySummary) string {
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s", s.ByType[t], t))
	}

	line := fmt.Sprintf("Summary: %d events", s.Total)
	if len(parts) > 0 {
		line += " | " + strings.Join(parts, ", ")
	}
	if s.Warnings > 0 {
		line += fmt.Sprintf(" | %d with validation warnings", s.Warnings)
	}
	return line + "\n"
}

func formatDate(ts string) string {
	t, err := time.Parse(schema.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(schema.TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
