package views

import (
	"testing"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

func TestComputeDashboard(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 1, 12, 18, 0, 0, 0, time.UTC)

	tasks := []types.Task{
		taskFixture("t1", &past, false),  // pending, overdue
		taskFixture("t2", &today, false), // pending, due today
		taskFixture("t3", nil, false),    // pending, undated
		taskFixture("t4", &past, true),   // completed
		taskFixture("t5", nil, true),     // completed
	}

	stats := ComputeDashboard(tasks, 7, 12, now)

	if stats.TotalContacts != 7 {
		t.Errorf("TotalContacts: got %d, want 7", stats.TotalContacts)
	}
	if stats.TotalTasks != 5 {
		t.Errorf("TotalTasks: got %d, want 5", stats.TotalTasks)
	}
	if stats.PendingTasks != 3 {
		t.Errorf("PendingTasks: got %d, want 3", stats.PendingTasks)
	}
	if stats.CompletedTasks != 2 {
		t.Errorf("CompletedTasks: got %d, want 2", stats.CompletedTasks)
	}
	if stats.OverdueTasks != 1 {
		t.Errorf("OverdueTasks: got %d, want 1", stats.OverdueTasks)
	}
	if stats.TotalVoiceLogs != 12 {
		t.Errorf("TotalVoiceLogs: got %d, want 12", stats.TotalVoiceLogs)
	}
	if stats.CompletionRate != 0.4 {
		t.Errorf("CompletionRate: got %v, want 0.4", stats.CompletionRate)
	}
}

func TestComputeDashboardEmpty(t *testing.T) {
	stats := ComputeDashboard(nil, 0, 0, time.Now())

	if stats.CompletionRate != 0 {
		t.Errorf("CompletionRate with no tasks: got %v, want 0", stats.CompletionRate)
	}
	if stats.TotalTasks != 0 || stats.PendingTasks != 0 || stats.OverdueTasks != 0 {
		t.Errorf("empty stats not zero: %+v", stats)
	}
}
