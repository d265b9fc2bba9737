package handlers

import (
	"errors"
	"net/http"

	"github.com/ekkohq/ekko/internal/storage"
)

// EnrichmentHandlers contains HTTP handlers for per-contact enrichment.
type EnrichmentHandlers struct {
	store     storage.Store
	scheduler EnrichmentScheduler
}

// NewEnrichmentHandlers creates a new EnrichmentHandlers instance.
func NewEnrichmentHandlers(store storage.Store, scheduler EnrichmentScheduler) *EnrichmentHandlers {
	return &EnrichmentHandlers{store: store, scheduler: scheduler}
}

// GetEnrichment handles GET /api/contacts/{id}/enrichment. The payload
// carries the record's current status alongside whatever facts the last
// completed cycle produced; during a refresh the stale facts stay visible.
func (h *EnrichmentHandlers) GetEnrichment(w http.ResponseWriter, r *http.Request) {
	contactID := r.PathValue("id")
	if contactID == "" {
		respondError(w, http.StatusBadRequest, "contact ID is required", nil)
		return
	}

	enrichment, err := h.store.GetEnrichmentByContact(r.Context(), contactID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "enrichment not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get enrichment", err)
		return
	}

	respondJSON(w, http.StatusOK, ToEnrichmentResponse(enrichment))
}

// RefreshEnrichment handles POST /api/contacts/{id}/enrichment/refresh.
// A record already pending or processing is returned as-is; a settled
// record re-enters the lifecycle with its prior facts intact.
func (h *EnrichmentHandlers) RefreshEnrichment(w http.ResponseWriter, r *http.Request) {
	contactID := r.PathValue("id")
	if contactID == "" {
		respondError(w, http.StatusBadRequest, "contact ID is required", nil)
		return
	}

	if h.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "enrichment is not configured", nil)
		return
	}

	enrichment, err := h.scheduler.RequestRefresh(r.Context(), contactID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "enrichment not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to refresh enrichment", err)
		return
	}

	respondJSON(w, http.StatusAccepted, ToEnrichmentResponse(enrichment))
}
