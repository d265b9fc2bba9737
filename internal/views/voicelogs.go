package views

import (
	"sort"
	"strings"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

// VoiceLogGroup is one calendar day of voice log entries, newest first.
type VoiceLogGroup struct {
	// Label is "Today", "Yesterday", or a "Jan 2, 2006" date.
	Label string           `json:"label"`
	Logs  []types.VoiceLog `json:"logs"`
}

// FilterVoiceLogs returns entries matching the query and intent. The query
// is a case-insensitive substring match over transcription or response
// (OR); a non-empty intent additionally requires an exact intent match
// (AND).
func FilterVoiceLogs(logs []types.VoiceLog, query, intent string) []types.VoiceLog {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]types.VoiceLog, 0, len(logs))
	for _, l := range logs {
		if intent != "" && l.Intent != intent {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Transcription), query) &&
			!strings.Contains(strings.ToLower(l.Response), query) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// GroupVoiceLogsByDay groups entries by calendar day in the location of
// now, newest day first and newest entry first within each day.
func GroupVoiceLogsByDay(logs []types.VoiceLog, now time.Time) []VoiceLogGroup {
	loc := now.Location()

	sorted := make([]types.VoiceLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var groups []VoiceLogGroup
	var currentDay time.Time
	for _, l := range sorted {
		day := startOfDay(l.CreatedAt.In(loc))
		if len(groups) == 0 || !day.Equal(currentDay) {
			groups = append(groups, VoiceLogGroup{Label: dayLabel(day, now)})
			currentDay = day
		}
		groups[len(groups)-1].Logs = append(groups[len(groups)-1].Logs, l)
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayLabel(day, now time.Time) string {
	today := startOfDay(now)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Jan 2, 2006")
	}
}
