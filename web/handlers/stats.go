package handlers

import (
	"net/http"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// QueueSizeGetter exposes the enrichment queue depth for the stats payload.
type QueueSizeGetter interface {
	QueueLength() int
}

// StatsHandler serves dashboard statistics.
type StatsHandler struct {
	store       storage.Store
	queueGetter QueueSizeGetter
}

// NewStatsHandler creates a new StatsHandler. queueGetter may be nil.
func NewStatsHandler(store storage.Store, queueGetter QueueSizeGetter) *StatsHandler {
	return &StatsHandler{store: store, queueGetter: queueGetter}
}

// GetStats handles GET /api/stats - dashboard counters computed over the
// current task collection at request time.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	totalContacts, err := h.store.CountContacts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count contacts", err)
		return
	}

	totalVoiceLogs, err := h.store.CountVoiceLogs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count voice logs", err)
		return
	}

	tasks, err := fetchAll(storage.ListOptions{}, func(opts storage.ListOptions) (*storage.PaginatedResult[types.Task], error) {
		return h.store.ListTasks(r.Context(), opts)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tasks", err)
		return
	}

	resp := StatsResponse{
		DashboardStats: views.ComputeDashboard(tasks, totalContacts, totalVoiceLogs, time.Now()),
	}
	if h.queueGetter != nil {
		resp.QueueSize = h.queueGetter.QueueLength()
	}

	respondJSON(w, http.StatusOK, resp)
}
