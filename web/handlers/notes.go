package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// NoteHandlers contains HTTP handlers for the note REST API.
type NoteHandlers struct {
	store storage.Store
}

// NewNoteHandlers creates a new NoteHandlers instance.
func NewNoteHandlers(store storage.Store) *NoteHandlers {
	return &NoteHandlers{store: store}
}

// NoteBoardResponse is the response format for GET /api/notes: pinned notes
// first, each group newest-updated first.
type NoteBoardResponse struct {
	Pinned []types.Note `json:"pinned"`
	Others []types.Note `json:"others"`
	Total  int          `json:"total"`
}

// ListNotes handles GET /api/notes - the note board, optionally narrowed by
// a "q" substring search over title and content.
func (h *NoteHandlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := fetchAll(listOptionsFromQuery(r), func(opts storage.ListOptions) (*storage.PaginatedResult[types.Note], error) {
		return h.store.ListNotes(r.Context(), opts)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notes", err)
		return
	}

	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		notes = views.FilterNotes(notes, query)
	}

	board := views.PartitionNotes(notes)
	respondJSON(w, http.StatusOK, NoteBoardResponse{
		Pinned: board.Pinned,
		Others: board.Others,
		Total:  len(notes),
	})
}

// GetNote handles GET /api/notes/{id}.
func (h *NoteHandlers) GetNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "note ID is required", nil)
		return
	}

	note, err := h.store.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get note", err)
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// CreateNoteRequest represents the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Color   string `json:"color,omitempty"`
	Pinned  bool   `json:"pinned,omitempty"`
}

// CreateNote handles POST /api/notes.
func (h *NoteHandlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	now := time.Now().UTC()
	note := &types.Note{
		ID:        engine.NewID("nt"),
		Title:     req.Title,
		Content:   req.Content,
		Color:     req.Color,
		Pinned:    req.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := note.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid note", err)
		return
	}

	if err := h.store.CreateNote(r.Context(), note); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create note", err)
		return
	}

	respondJSON(w, http.StatusCreated, note)
}

// UpdateNoteRequest represents the request body for updating a note.
// Pinned is not updated here; use the /pin endpoint.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Color   *string `json:"color,omitempty"`
}

// UpdateNote handles PATCH /api/notes/{id} - partial update.
func (h *NoteHandlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "note ID is required", nil)
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	note, err := h.store.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get note", err)
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Color != nil {
		note.Color = *req.Color
	}
	note.UpdatedAt = time.Now().UTC()

	if err := note.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid note", err)
		return
	}

	if err := h.store.UpdateNote(r.Context(), note); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update note", err)
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// TogglePin handles POST /api/notes/{id}/pin - toggle the pinned flag.
func (h *NoteHandlers) TogglePin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "note ID is required", nil)
		return
	}

	note, err := h.store.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get note", err)
		return
	}

	pinned := !note.Pinned
	if err := h.store.SetPinned(r.Context(), id, pinned); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update pin", err)
		return
	}

	note.Pinned = pinned
	respondJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *NoteHandlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "note ID is required", nil)
		return
	}

	if err := h.store.DeleteNote(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "note not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete note", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
