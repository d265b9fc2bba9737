package views

import (
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

// DashboardStats is the aggregate snapshot shown on the dashboard.
type DashboardStats struct {
	TotalContacts  int `json:"total_contacts"`
	TotalTasks     int `json:"total_tasks"`
	PendingTasks   int `json:"pending_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
	TotalVoiceLogs int `json:"total_voice_logs"`

	// CompletionRate is CompletedTasks / TotalTasks, 0 when there are no
	// tasks.
	CompletionRate float64 `json:"completion_rate"`
}

// ComputeDashboard derives the dashboard aggregates from the full task
// collection and the entity totals. Overdue counts tasks that are pending
// with a due date before the start of today in the location of now.
func ComputeDashboard(tasks []types.Task, totalContacts, totalVoiceLogs int, now time.Time) DashboardStats {
	stats := DashboardStats{
		TotalContacts:  totalContacts,
		TotalTasks:     len(tasks),
		TotalVoiceLogs: totalVoiceLogs,
	}

	for _, t := range tasks {
		if t.Completed {
			stats.CompletedTasks++
			continue
		}
		stats.PendingTasks++
		if ClassifyDue(t.DueAt, now).Class == DuePast {
			stats.OverdueTasks++
		}
	}

	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks)
	}

	return stats
}
