package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ekkohq/ekko/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createNote(t *testing.T, h *NoteHandlers, req CreateNoteRequest) types.Note {
	t.Helper()
	w := doJSON(t, http.MethodPost, "/api/notes", req,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/notes", h.CreateNote) })
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var note types.Note
	require.NoError(t, json.NewDecoder(w.Body).Decode(&note))
	return note
}

func TestCreateNoteValidation(t *testing.T) {
	store := newTestStore(t)
	h := NewNoteHandlers(store)

	w := doJSON(t, http.MethodPost, "/api/notes", CreateNoteRequest{Content: "no title"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/notes", h.CreateNote) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoteBoardPartition(t *testing.T) {
	store := newTestStore(t)
	h := NewNoteHandlers(store)

	createNote(t, h, CreateNoteRequest{Title: "Scratch"})
	pinned := createNote(t, h, CreateNoteRequest{Title: "Playbook", Pinned: true})

	w := doJSON(t, http.MethodGet, "/api/notes", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/notes", h.ListNotes) })
	require.Equal(t, http.StatusOK, w.Code)

	var board NoteBoardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&board))
	require.Len(t, board.Pinned, 1)
	require.Len(t, board.Others, 1)
	assert.Equal(t, pinned.ID, board.Pinned[0].ID)
	assert.Equal(t, 2, board.Total)
}

func TestTogglePin(t *testing.T) {
	store := newTestStore(t)
	h := NewNoteHandlers(store)
	note := createNote(t, h, CreateNoteRequest{Title: "Playbook"})

	w := doJSON(t, http.MethodPost, "/api/notes/"+note.ID+"/pin", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/notes/{id}/pin", h.TogglePin) })
	require.Equal(t, http.StatusOK, w.Code)

	var pinned types.Note
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pinned))
	assert.True(t, pinned.Pinned)

	w = doJSON(t, http.MethodPost, "/api/notes/"+note.ID+"/pin", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/notes/{id}/pin", h.TogglePin) })
	require.Equal(t, http.StatusOK, w.Code)

	var unpinned types.Note
	require.NoError(t, json.NewDecoder(w.Body).Decode(&unpinned))
	assert.False(t, unpinned.Pinned)
}

func TestAppendVoiceLogAndGroupedList(t *testing.T) {
	store := newTestStore(t)
	h := NewVoiceLogHandlers(store)

	w := doJSON(t, http.MethodPost, "/api/voice-logs", AppendVoiceLogRequest{
		Transcription: "add a task to call Ada tomorrow",
		Intent:        types.IntentCreateTask,
		Response:      "Task created.",
	}, func(mux *http.ServeMux) { mux.HandleFunc("/api/voice-logs", h.AppendVoiceLog) })
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, http.MethodGet, "/api/voice-logs", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/voice-logs", h.ListVoiceLogs) })
	require.Equal(t, http.StatusOK, w.Code)

	var resp VoiceLogListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "Today", resp.Groups[0].Label)
	assert.Equal(t, 1, resp.Total)
}

func TestListVoiceLogsIntentFilter(t *testing.T) {
	store := newTestStore(t)
	h := NewVoiceLogHandlers(store)

	for _, req := range []AppendVoiceLogRequest{
		{Transcription: "call Ada", Intent: types.IntentCreateTask},
		{Transcription: "who is Grace", Intent: types.IntentQuery},
	} {
		w := doJSON(t, http.MethodPost, "/api/voice-logs", req,
			func(mux *http.ServeMux) { mux.HandleFunc("/api/voice-logs", h.AppendVoiceLog) })
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, http.MethodGet, "/api/voice-logs?intent=query", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/voice-logs", h.ListVoiceLogs) })
	require.Equal(t, http.StatusOK, w.Code)

	var resp VoiceLogListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
}

func TestAppendVoiceLogValidation(t *testing.T) {
	store := newTestStore(t)
	h := NewVoiceLogHandlers(store)

	w := doJSON(t, http.MethodPost, "/api/voice-logs", AppendVoiceLogRequest{Transcription: "no intent"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/voice-logs", h.AppendVoiceLog) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
