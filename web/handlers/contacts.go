package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// ContactHandlers contains HTTP handlers for the contact REST API.
type ContactHandlers struct {
	store     storage.Store
	scheduler EnrichmentScheduler
}

// NewContactHandlers creates a new ContactHandlers instance. The scheduler
// may be nil, in which case contacts are stored without enrichment.
func NewContactHandlers(store storage.Store, scheduler EnrichmentScheduler) *ContactHandlers {
	return &ContactHandlers{store: store, scheduler: scheduler}
}

// ListContacts handles GET /api/contacts - list contacts with pagination,
// sorting, and substring search via the "q" parameter.
func (h *ContactHandlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query != "" {
		// Search scans the whole collection.
		contacts, err := fetchAll(opts, func(opts storage.ListOptions) (*storage.PaginatedResult[types.Contact], error) {
			return h.store.ListContacts(r.Context(), opts)
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list contacts", err)
			return
		}
		matched := views.FilterContacts(contacts, query)
		respondJSON(w, http.StatusOK, &storage.PaginatedResult[types.Contact]{
			Items:    matched,
			Total:    len(matched),
			Page:     1,
			PageSize: len(matched),
		})
		return
	}

	result, err := h.store.ListContacts(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list contacts", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetContact handles GET /api/contacts/{id}.
func (h *ContactHandlers) GetContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "contact ID is required", nil)
		return
	}

	contact, err := h.store.GetContact(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "contact not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get contact", err)
		return
	}

	respondJSON(w, http.StatusOK, contact)
}

// CreateContactRequest represents the request body for creating a contact.
type CreateContactRequest struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Company     string   `json:"company,omitempty"`
	Role        string   `json:"role,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	LinkedIn    string   `json:"linkedin,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AvatarColor string   `json:"avatar_color,omitempty"`
}

// CreateContact handles POST /api/contacts - create a new contact.
// An enrichment record is opened for the contact and filled asynchronously.
func (h *ContactHandlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	now := time.Now().UTC()
	contact := &types.Contact{
		ID:          engine.NewID("ct"),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Company:     req.Company,
		Role:        req.Role,
		Email:       req.Email,
		Phone:       req.Phone,
		LinkedIn:    req.LinkedIn,
		Notes:       req.Notes,
		Tags:        req.Tags,
		AvatarColor: req.AvatarColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	contact.NormalizeTags()
	if contact.AvatarColor == "" {
		contact.AvatarColor = defaultAvatarColor(contact.DisplayName())
	}

	if err := contact.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid contact", err)
		return
	}

	if err := h.store.CreateContact(r.Context(), contact); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create contact", err)
		return
	}

	// Enrichment starts in the background; the response carries the
	// contact immediately with enrichment still pending.
	if h.scheduler != nil {
		if _, err := h.scheduler.OpenForContact(r.Context(), contact); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to open enrichment", err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, contact)
}

// UpdateContactRequest represents the request body for updating a contact.
// All fields are optional for partial updates.
type UpdateContactRequest struct {
	FirstName     *string    `json:"first_name,omitempty"`
	LastName      *string    `json:"last_name,omitempty"`
	Company       *string    `json:"company,omitempty"`
	Role          *string    `json:"role,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	LinkedIn      *string    `json:"linkedin,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	AvatarColor   *string    `json:"avatar_color,omitempty"`
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`
}

// UpdateContact handles PATCH /api/contacts/{id} - partial update.
func (h *ContactHandlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "contact ID is required", nil)
		return
	}

	var req UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	contact, err := h.store.GetContact(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "contact not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get contact", err)
		return
	}

	if req.FirstName != nil {
		contact.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		contact.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Company != nil {
		contact.Company = *req.Company
	}
	if req.Role != nil {
		contact.Role = *req.Role
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}
	if req.LinkedIn != nil {
		contact.LinkedIn = *req.LinkedIn
	}
	if req.Notes != nil {
		contact.Notes = *req.Notes
	}
	if req.Tags != nil {
		contact.Tags = *req.Tags
		contact.NormalizeTags()
	}
	if req.AvatarColor != nil {
		contact.AvatarColor = *req.AvatarColor
	}
	if req.LastContactAt != nil {
		contact.LastContactAt = req.LastContactAt
	}
	contact.UpdatedAt = time.Now().UTC()

	if err := contact.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid contact", err)
		return
	}

	if err := h.store.UpdateContact(r.Context(), contact); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "contact not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update contact", err)
		return
	}

	respondJSON(w, http.StatusOK, contact)
}

// DeleteContact handles DELETE /api/contacts/{id}. The contact's enrichment
// record is removed by the same operation, and any queued enrichment work
// for the contact is abandoned.
func (h *ContactHandlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "contact ID is required", nil)
		return
	}

	if err := h.store.DeleteContact(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "contact not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete contact", err)
		return
	}

	if h.scheduler != nil {
		h.scheduler.DropForContact(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

// listOptionsFromQuery builds storage.ListOptions from common query params.
func listOptionsFromQuery(r *http.Request) storage.ListOptions {
	q := r.URL.Query()
	return storage.ListOptions{
		Page:      parseInt(q.Get("page"), 1),
		Limit:     parseInt(q.Get("limit"), 0),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// defaultAvatarColor assigns a stable color token from the display name.
func defaultAvatarColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return types.DefaultAvatarColors[int(h.Sum32())%len(types.DefaultAvatarColors)]
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more we can do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
