package types

import (
	"fmt"
	"strings"
	"time"
)

// TaskPriority represents the urgency level of a task.
type TaskPriority string

// Task priority constants. Priority is a closed enum; unknown values are
// rejected by Validate.
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ValidTaskPriorities contains all valid priority values.
var ValidTaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

// IsValidTaskPriority checks if the given priority is a valid value.
// Empty string is considered valid (defaults to medium on store).
func IsValidTaskPriority(p TaskPriority) bool {
	if p == "" {
		return true
	}
	for _, valid := range ValidTaskPriorities {
		if p == valid {
			return true
		}
	}
	return false
}

// Task category keys used by the voice pipeline and the web UI. Category is
// an open string key; these are the well-known values, but stores accept any
// non-empty key.
const (
	CategoryFollowUp = "followUp"
	CategoryEmail    = "email"
	CategoryCall     = "call"
	CategoryMeeting  = "meeting"
	CategoryProposal = "proposal"
	CategoryReminder = "reminder"
)

// Task represents a single actionable item, optionally tied to a contact.
type Task struct {
	ID          string       `json:"id"` // Unique identifier (format: tk:<slug>)
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueAt       *time.Time   `json:"due_at,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Category    string       `json:"category"`

	// Completed and CompletedAt move together: CompletedAt is set if and
	// only if Completed is true. Stores update both in a single call.
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ContactID references the related contact. ContactName is a display
	// snapshot taken at creation time; it is never re-synced and may
	// outlive the contact it was copied from.
	ContactID   string `json:"contact_id,omitempty"`
	ContactName string `json:"contact_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the task's required fields and invariants.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if !IsValidTaskPriority(t.Priority) {
		return fmt.Errorf("%w: invalid task priority %q", ErrValidation, t.Priority)
	}
	if t.Completed && t.CompletedAt == nil {
		return fmt.Errorf("%w: completed task is missing completion timestamp", ErrValidation)
	}
	if !t.Completed && t.CompletedAt != nil {
		return fmt.Errorf("%w: pending task must not carry a completion timestamp", ErrValidation)
	}
	return nil
}
