package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates that a guarded update found the record in an
	// unexpected state. Callers treat this as a no-op: it is the
	// optimistic-concurrency signal for stale or duplicate transitions.
	ErrConflict = errors.New("state conflict")
)

// PaginatedResult represents a paginated result set.
type PaginatedResult[T any] struct {
	// Items is the slice of results for the current page.
	Items []T

	// Total is the total number of items across all pages.
	Total int

	// Page is the current page number (1-indexed).
	Page int

	// PageSize is the number of items per page.
	PageSize int

	// HasMore indicates whether there are more pages available.
	HasMore bool
}

// ListOptions provides pagination and sorting options for list operations.
type ListOptions struct {
	// Page is the page number to retrieve (1-indexed, default: 1).
	Page int

	// Limit is the number of items per page (default: 50, max: 500).
	Limit int

	// SortBy specifies the field to sort by. Allowed fields are
	// whitelist-validated per entity; unknown values fall back to the
	// entity's default.
	SortBy string

	// SortOrder specifies the sort direction ("asc" or "desc").
	SortOrder string
}

// Normalize applies defaults and validates the ListOptions against the
// given whitelist of sortable columns. defaultSort and defaultOrder are
// used when the requested values are absent or not allowed.
func (o *ListOptions) Normalize(allowedSortFields map[string]bool, defaultSort, defaultOrder string) {
	if !allowedSortFields[o.SortBy] {
		o.SortBy = defaultSort
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		o.SortOrder = defaultOrder
	}

	if o.Page < 1 {
		o.Page = 1
	}

	if o.Limit < 1 {
		o.Limit = 50
	}

	if o.Limit > 500 {
		o.Limit = 500
	}
}

// Offset calculates the offset for SQL queries based on page and limit.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}
