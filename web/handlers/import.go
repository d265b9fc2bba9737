package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ekkohq/ekko/internal/importer"
)

// ImportHandlers contains HTTP handlers for Markdown import.
type ImportHandlers struct {
	importer *importer.MarkdownImporter
}

// NewImportHandlers creates a new ImportHandlers instance.
func NewImportHandlers(imp *importer.MarkdownImporter) *ImportHandlers {
	return &ImportHandlers{importer: imp}
}

// PostMarkdownImport handles POST /api/import/markdown - start an async
// import of a server-local directory of Markdown files.
func (h *ImportHandlers) PostMarkdownImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required", nil)
		return
	}

	// The job outlives this request, so it runs on a background context.
	jobID, err := h.importer.StartImport(context.Background(), req.Path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to start import", err)
		return
	}

	respondJSON(w, http.StatusAccepted, ImportResponse{
		JobID:   jobID,
		Message: "import started",
	})
}

// GetImportStatus handles GET /api/import/status/{job_id} - live progress
// for a running job, final result once done.
func (h *ImportHandlers) GetImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "job ID is required", nil)
		return
	}

	progress, ok := h.importer.GetJobProgress(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "import job not found", nil)
		return
	}

	payload := map[string]interface{}{
		"progress": progress,
	}
	if result := h.importer.GetJobResult(jobID); result != nil {
		payload["result"] = result
	}

	respondJSON(w, http.StatusOK, payload)
}
