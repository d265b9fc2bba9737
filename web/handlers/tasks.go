package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// TaskHandlers contains HTTP handlers for the task REST API.
type TaskHandlers struct {
	store storage.Store
}

// NewTaskHandlers creates a new TaskHandlers instance.
func NewTaskHandlers(store storage.Store) *TaskHandlers {
	return &TaskHandlers{store: store}
}

// TaskListResponse is the response format for GET /api/tasks.
type TaskListResponse struct {
	Items  []views.TaskView `json:"items"`
	Total  int              `json:"total"`
	Filter views.TaskFilter `json:"filter"`
}

// ListTasks handles GET /api/tasks - list tasks with an optional lifecycle
// filter (all, pending, completed, overdue). Each item carries its due
// classification relative to the server's current day.
func (h *TaskHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := views.TaskFilter(r.URL.Query().Get("filter"))
	if !views.IsValidTaskFilter(filter) {
		respondError(w, http.StatusBadRequest, "unknown task filter", nil)
		return
	}
	if filter == "" {
		filter = views.TaskFilterAll
	}

	// Filtering and overdue classification need the whole set.
	tasks, err := fetchAll(listOptionsFromQuery(r), func(opts storage.ListOptions) (*storage.PaginatedResult[types.Task], error) {
		return h.store.ListTasks(r.Context(), opts)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tasks", err)
		return
	}

	items := views.BuildTaskViews(tasks, filter, time.Now())
	respondJSON(w, http.StatusOK, TaskListResponse{
		Items:  items,
		Total:  len(items),
		Filter: filter,
	})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "task ID is required", nil)
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get task", err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	DueAt       *time.Time         `json:"due_at,omitempty"`
	Priority    types.TaskPriority `json:"priority,omitempty"`
	Category    string             `json:"category,omitempty"`
	ContactID   string             `json:"contact_id,omitempty"`
}

// CreateTask handles POST /api/tasks - create a new task.
// When a contact is referenced, its display name is snapshotted onto the
// task at creation time.
func (h *TaskHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	now := time.Now().UTC()
	task := &types.Task{
		ID:          engine.NewID("tk"),
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		Priority:    req.Priority,
		Category:    req.Category,
		ContactID:   req.ContactID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if task.ContactID != "" {
		contact, err := h.store.GetContact(r.Context(), task.ContactID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "referenced contact not found", err)
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to resolve contact", err)
			return
		}
		task.ContactName = contact.DisplayName()
	}

	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid task", err)
		return
	}

	if err := h.store.CreateTask(r.Context(), task); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create task", err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTaskRequest represents the request body for updating a task.
// All fields are optional for partial updates. Completion is not updated
// here; use the /complete endpoint.
type UpdateTaskRequest struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	DueAt       *time.Time          `json:"due_at,omitempty"`
	ClearDueAt  bool                `json:"clear_due_at,omitempty"`
	Priority    *types.TaskPriority `json:"priority,omitempty"`
	Category    *string             `json:"category,omitempty"`
}

// UpdateTask handles PATCH /api/tasks/{id} - partial update.
func (h *TaskHandlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "task ID is required", nil)
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get task", err)
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	} else if req.ClearDueAt {
		task.DueAt = nil
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid task", err)
		return
	}

	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update task", err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// ToggleComplete handles POST /api/tasks/{id}/complete - toggle the task's
// completion state. Completing sets the completion timestamp; reopening
// clears it. Both fields move in one storage call.
func (h *TaskHandlers) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "task ID is required", nil)
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get task", err)
		return
	}

	completed := !task.Completed
	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	if err := h.store.SetCompletion(r.Context(), id, completed, completedAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update completion", err)
		return
	}

	task.Completed = completed
	task.CompletedAt = completedAt
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "task ID is required", nil)
		return
	}

	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete task", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
