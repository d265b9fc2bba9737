package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTask(t *testing.T, h *TaskHandlers, req CreateTaskRequest) types.Task {
	t.Helper()
	w := doJSON(t, http.MethodPost, "/api/tasks", req,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks", h.CreateTask) })
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task types.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)

	task := createTask(t, h, CreateTaskRequest{Title: "Send deck"})
	assert.Equal(t, types.PriorityMedium, task.Priority)
	assert.False(t, task.Completed)
}

func TestCreateTaskSnapshotsContactName(t *testing.T) {
	store := newTestStore(t)
	ch := NewContactHandlers(store, nil)
	h := NewTaskHandlers(store)

	w := doJSON(t, http.MethodPost, "/api/contacts", CreateContactRequest{FirstName: "Ada", LastName: "Lovelace"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", ch.CreateContact) })
	require.Equal(t, http.StatusCreated, w.Code)
	var contact types.Contact
	require.NoError(t, json.NewDecoder(w.Body).Decode(&contact))

	task := createTask(t, h, CreateTaskRequest{Title: "Call Ada", ContactID: contact.ID})
	assert.Equal(t, "Ada Lovelace", task.ContactName)
}

func TestCreateTaskUnknownContact(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)

	w := doJSON(t, http.MethodPost, "/api/tasks", CreateTaskRequest{Title: "Call", ContactID: "ct:ghost"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks", h.CreateTask) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleComplete(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)
	task := createTask(t, h, CreateTaskRequest{Title: "Send deck"})

	w := doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/complete", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks/{id}/complete", h.ToggleComplete) })
	require.Equal(t, http.StatusOK, w.Code)

	var completed types.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&completed))
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedAt)

	// Toggling again reopens the task and clears the timestamp.
	w = doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/complete", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks/{id}/complete", h.ToggleComplete) })
	require.Equal(t, http.StatusOK, w.Code)

	var reopened types.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reopened))
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)
}

func TestListTasksOverdueFilter(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)

	yesterday := time.Now().AddDate(0, 0, -2)
	tomorrow := time.Now().AddDate(0, 0, 1)
	overdue := createTask(t, h, CreateTaskRequest{Title: "Late follow-up", DueAt: &yesterday})
	createTask(t, h, CreateTaskRequest{Title: "Future call", DueAt: &tomorrow})

	w := doJSON(t, http.MethodGet, "/api/tasks?filter=overdue", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks", h.ListTasks) })
	require.Equal(t, http.StatusOK, w.Code)

	var resp TaskListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, overdue.ID, resp.Items[0].ID)
	assert.Equal(t, views.DuePast, resp.Items[0].Due.Class)
	assert.GreaterOrEqual(t, resp.Items[0].Due.DaysOverdue, 1)
}

func TestListTasksSpansStoragePages(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)

	now := time.Now().UTC()
	for i := 0; i < 520; i++ {
		require.NoError(t, store.CreateTask(context.Background(), &types.Task{
			ID:        fmt.Sprintf("tk:span-%03d", i),
			Title:     fmt.Sprintf("task %d", i),
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	w := doJSON(t, http.MethodGet, "/api/tasks", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks", h.ListTasks) })
	require.Equal(t, http.StatusOK, w.Code)

	var resp TaskListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 520, resp.Total)
	assert.Len(t, resp.Items, 520)
}

func TestListTasksUnknownFilter(t *testing.T) {
	store := newTestStore(t)
	h := NewTaskHandlers(store)

	w := doJSON(t, http.MethodGet, "/api/tasks?filter=bogus", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/tasks", h.ListTasks) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
