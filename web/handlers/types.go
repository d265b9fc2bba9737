package handlers

import (
	"context"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/views"
	"github.com/ekkohq/ekko/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// EnrichmentScheduler is the engine surface the handlers depend on. The
// concrete implementation is internal/engine.Engine; tests substitute mocks.
type EnrichmentScheduler interface {
	OpenForContact(ctx context.Context, contact *types.Contact) (*types.Enrichment, error)
	RequestRefresh(ctx context.Context, contactID string) (*types.Enrichment, error)
	DropForContact(contactID string)
	QueueLength() int
}

// collectionPageSize is the page size used when a handler needs the
// whole collection.
const collectionPageSize = 500

// fetchAll pages through a list operation until it is exhausted.
// Handlers that filter or reduce in memory use it so results never
// silently truncate at one storage page. Sort options in opts are kept;
// Page and Limit are overridden.
func fetchAll[T any](opts storage.ListOptions, list func(storage.ListOptions) (*storage.PaginatedResult[T], error)) ([]T, error) {
	opts.Limit = collectionPageSize
	var all []T
	for page := 1; ; page++ {
		opts.Page = page
		result, err := list(opts)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Items...)
		if !result.HasMore {
			return all, nil
		}
	}
}

// displayNewsLimit caps the news items echoed in enrichment payloads. The
// full list stays in storage; clients only render the most recent few.
const displayNewsLimit = 3

// EnrichmentResponse is the response format for GET /api/contacts/{id}/enrichment.
type EnrichmentResponse struct {
	types.Enrichment
	Refreshing  bool             `json:"refreshing"`
	DisplayNews []types.NewsItem `json:"display_news,omitempty"`
}

// ToEnrichmentResponse builds the API payload for an enrichment record.
func ToEnrichmentResponse(e *types.Enrichment) EnrichmentResponse {
	resp := EnrichmentResponse{
		Enrichment: *e,
		Refreshing: e.Refreshing(),
	}
	if n := len(e.Facts.RecentNews); n > 0 {
		if n > displayNewsLimit {
			n = displayNewsLimit
		}
		resp.DisplayNews = e.Facts.RecentNews[:n]
	}
	return resp
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	views.DashboardStats
	QueueSize int `json:"queue_size"`
}

// ImportRequest is the request format for POST /api/import/markdown.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse is the response format for POST /api/import/markdown.
type ImportResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}
