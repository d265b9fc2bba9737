package views

import (
	"testing"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

func taskFixture(id string, due *time.Time, completed bool) types.Task {
	t := types.Task{ID: id, Title: id, DueAt: due, Completed: completed}
	if completed {
		now := time.Now()
		t.CompletedAt = &now
	}
	return t
}

func TestFilterTasks(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 1, 12, 17, 0, 0, 0, time.UTC)
	future := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tasks := []types.Task{
		taskFixture("overdue", &past, false),
		taskFixture("due-today", &today, false),
		taskFixture("future", &future, false),
		taskFixture("done", &past, true),
		taskFixture("undated", nil, false),
	}

	ids := func(ts []types.Task) []string {
		out := make([]string, len(ts))
		for i, x := range ts {
			out[i] = x.ID
		}
		return out
	}

	tests := []struct {
		filter TaskFilter
		want   []string
	}{
		{TaskFilterAll, []string{"overdue", "due-today", "future", "done", "undated"}},
		{TaskFilterPending, []string{"overdue", "due-today", "future", "undated"}},
		{TaskFilterCompleted, []string{"done"}},
		// A completed task with a past due date is not overdue, and a
		// task due later today is not overdue either.
		{TaskFilterOverdue, []string{"overdue"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := ids(FilterTasks(tasks, tt.filter, now))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSortTasksOrdering(t *testing.T) {
	d1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tasks := []types.Task{
		taskFixture("done-early", &d1, true),
		taskFixture("undated-a", nil, false),
		taskFixture("late", &d2, false),
		taskFixture("early", &d1, false),
		taskFixture("undated-b", nil, false),
	}

	SortTasks(tasks)

	want := []string{"early", "late", "undated-a", "undated-b", "done-early"}
	for i, w := range want {
		if tasks[i].ID != w {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, tasks[i].ID, w, taskIDs(tasks))
		}
	}
}

func TestSortTasksStableForTies(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tasks := []types.Task{
		taskFixture("first", &d, false),
		taskFixture("second", &d, false),
		taskFixture("third", &d, false),
	}

	SortTasks(tasks)

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if tasks[i].ID != w {
			t.Fatalf("tie order not preserved: got %v", taskIDs(tasks))
		}
	}
}

func TestBuildTaskViewsAttachesClassification(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	views := BuildTaskViews([]types.Task{taskFixture("overdue", &past, false)}, TaskFilterAll, now)
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].Due.Class != DuePast {
		t.Errorf("Class: got %q, want past", views[0].Due.Class)
	}
	if views[0].Due.DaysOverdue != 2 {
		t.Errorf("DaysOverdue: got %d, want 2", views[0].Due.DaysOverdue)
	}
}

func taskIDs(ts []types.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
