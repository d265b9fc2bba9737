package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// VoiceLogHandlers contains HTTP handlers for the voice interaction log.
type VoiceLogHandlers struct {
	store storage.Store
}

// NewVoiceLogHandlers creates a new VoiceLogHandlers instance.
func NewVoiceLogHandlers(store storage.Store) *VoiceLogHandlers {
	return &VoiceLogHandlers{store: store}
}

// VoiceLogListResponse is the response format for GET /api/voice-logs:
// entries grouped by calendar day, newest day first.
type VoiceLogListResponse struct {
	Groups []views.VoiceLogGroup `json:"groups"`
	Total  int                   `json:"total"`
}

// ListVoiceLogs handles GET /api/voice-logs. Supports "q" substring search
// over transcription and response, and an exact "intent" filter.
func (h *VoiceLogHandlers) ListVoiceLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := fetchAll(listOptionsFromQuery(r), func(opts storage.ListOptions) (*storage.PaginatedResult[types.VoiceLog], error) {
		return h.store.ListVoiceLogs(r.Context(), opts)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list voice logs", err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	intent := strings.TrimSpace(r.URL.Query().Get("intent"))
	if query != "" || intent != "" {
		logs = views.FilterVoiceLogs(logs, query, intent)
	}

	respondJSON(w, http.StatusOK, VoiceLogListResponse{
		Groups: views.GroupVoiceLogsByDay(logs, time.Now()),
		Total:  len(logs),
	})
}

// AppendVoiceLogRequest represents the request body for appending a voice
// log entry.
type AppendVoiceLogRequest struct {
	Transcription string `json:"transcription"`
	Intent        string `json:"intent"`
	Response      string `json:"response,omitempty"`
}

// AppendVoiceLog handles POST /api/voice-logs. The log is append-only;
// entries are never updated or deleted through the API.
func (h *VoiceLogHandlers) AppendVoiceLog(w http.ResponseWriter, r *http.Request) {
	var req AppendVoiceLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	log := &types.VoiceLog{
		ID:            engine.NewID("vl"),
		Transcription: req.Transcription,
		Intent:        req.Intent,
		Response:      req.Response,
		CreatedAt:     time.Now().UTC(),
	}

	if err := log.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid voice log", err)
		return
	}

	if err := h.store.AppendVoiceLog(r.Context(), log); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to append voice log", err)
		return
	}

	respondJSON(w, http.StatusCreated, log)
}
