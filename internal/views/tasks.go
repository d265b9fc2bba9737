package views

import (
	"sort"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

// TaskFilter selects a subset of tasks for display.
type TaskFilter string

// Task filter values.
const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterPending   TaskFilter = "pending"
	TaskFilterCompleted TaskFilter = "completed"
	TaskFilterOverdue   TaskFilter = "overdue"
)

// IsValidTaskFilter checks if the given filter is a known value. The empty
// string is valid and means all.
func IsValidTaskFilter(f TaskFilter) bool {
	switch f {
	case "", TaskFilterAll, TaskFilterPending, TaskFilterCompleted, TaskFilterOverdue:
		return true
	default:
		return false
	}
}

// TaskView is a task decorated with its temporal classification for
// presentation.
type TaskView struct {
	types.Task
	Due DueClassification `json:"due"`
}

// FilterTasks returns the tasks matching the filter, evaluated at now.
// Overdue means pending with a due date strictly before the start of
// today; a task due later today is not overdue.
func FilterTasks(tasks []types.Task, filter TaskFilter, now time.Time) []types.Task {
	if filter == "" || filter == TaskFilterAll {
		out := make([]types.Task, len(tasks))
		copy(out, tasks)
		return out
	}

	out := make([]types.Task, 0, len(tasks))
	for _, t := range tasks {
		switch filter {
		case TaskFilterPending:
			if !t.Completed {
				out = append(out, t)
			}
		case TaskFilterCompleted:
			if t.Completed {
				out = append(out, t)
			}
		case TaskFilterOverdue:
			if !t.Completed && ClassifyDue(t.DueAt, now).Class == DuePast {
				out = append(out, t)
			}
		}
	}
	return out
}

// SortTasks orders tasks for display: incomplete before completed, then by
// due date ascending with undated tasks last. The sort is stable, so tasks
// that compare equal keep their input order.
func SortTasks(tasks []types.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]

		if a.Completed != b.Completed {
			return !a.Completed
		}

		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return false
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		default:
			return a.DueAt.Before(*b.DueAt)
		}
	})
}

// BuildTaskViews filters, sorts, and decorates tasks in one pass over the
// full collection.
func BuildTaskViews(tasks []types.Task, filter TaskFilter, now time.Time) []TaskView {
	filtered := FilterTasks(tasks, filter, now)
	SortTasks(filtered)

	out := make([]TaskView, 0, len(filtered))
	for _, t := range filtered {
		out = append(out, TaskView{Task: t, Due: ClassifyDue(t.DueAt, now)})
	}
	return out
}
