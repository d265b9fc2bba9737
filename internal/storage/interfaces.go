// Package storage provides composable storage interfaces for the Ekko
// backend.
//
// The storage layer is designed with small, per-entity interfaces that can
// be implemented independently and composed as needed. Multi-field updates
// that must stay consistent (task completion, enrichment transitions) are
// expressed as single interface calls so that every backend applies them in
// one atomic statement.
package storage

import (
	"context"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

// ContactStore provides CRUD operations for contacts.
type ContactStore interface {
	// CreateContact inserts a new contact.
	CreateContact(ctx context.Context, contact *types.Contact) error

	// GetContact retrieves a contact by ID.
	// Returns ErrNotFound if the contact doesn't exist.
	GetContact(ctx context.Context, id string) (*types.Contact, error)

	// UpdateContact replaces a contact's mutable fields.
	// Returns ErrNotFound if the contact doesn't exist.
	UpdateContact(ctx context.Context, contact *types.Contact) error

	// DeleteContact removes a contact. The dependent enrichment record is
	// removed in the same operation (cascading delete); an orphaned
	// enrichment must never survive its contact.
	// Returns ErrNotFound if the contact doesn't exist.
	DeleteContact(ctx context.Context, id string) error

	// ListContacts retrieves contacts ordered per opts.
	ListContacts(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Contact], error)

	// CountContacts returns the total number of contacts.
	CountContacts(ctx context.Context) (int, error)
}

// TaskStore provides CRUD operations for tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *types.Task) error

	// GetTask returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id string) (*types.Task, error)

	UpdateTask(ctx context.Context, task *types.Task) error

	DeleteTask(ctx context.Context, id string) error

	ListTasks(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Task], error)

	// SetCompletion updates the completion flag and timestamp together in
	// a single statement. completedAt must be non-nil iff completed is
	// true; the two fields are never written independently.
	// Returns ErrNotFound if the task doesn't exist.
	SetCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) error
}

// NoteStore provides CRUD operations for notes.
type NoteStore interface {
	CreateNote(ctx context.Context, note *types.Note) error

	// GetNote returns ErrNotFound if the note doesn't exist.
	GetNote(ctx context.Context, id string) (*types.Note, error)

	UpdateNote(ctx context.Context, note *types.Note) error

	DeleteNote(ctx context.Context, id string) error

	ListNotes(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Note], error)

	// SetPinned updates the pinned flag (and updated_at) in a single
	// statement. Returns ErrNotFound if the note doesn't exist.
	SetPinned(ctx context.Context, id string, pinned bool) error
}

// VoiceLogStore provides append and read operations for the voice
// interaction log. The log is append-only: there is no update.
type VoiceLogStore interface {
	AppendVoiceLog(ctx context.Context, log *types.VoiceLog) error

	ListVoiceLogs(ctx context.Context, opts ListOptions) (*PaginatedResult[types.VoiceLog], error)

	CountVoiceLogs(ctx context.Context) (int, error)
}

// EnrichmentStore provides lifecycle-aware operations for contact
// enrichment records. All status writes are guarded by the expected source
// status; a guard miss returns ErrConflict and leaves the row untouched.
type EnrichmentStore interface {
	// CreateEnrichment inserts a new enrichment record for a contact.
	// The contact must exist; at most one record per contact.
	CreateEnrichment(ctx context.Context, enrichment *types.Enrichment) error

	// GetEnrichment retrieves an enrichment by its own ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetEnrichment(ctx context.Context, id string) (*types.Enrichment, error)

	// GetEnrichmentByContact retrieves the enrichment owned by the given
	// contact. Returns ErrNotFound if the contact has no record.
	GetEnrichmentByContact(ctx context.Context, contactID string) (*types.Enrichment, error)

	// TransitionStatus moves the record from the expected status to the
	// next one. Facts and timestamps are untouched, so a refresh keeps
	// prior facts visible. Returns ErrConflict if the current status does
	// not match from; ErrNotFound if the record doesn't exist.
	TransitionStatus(ctx context.Context, id string, from, to types.EnrichmentStatus) error

	// CompleteWithFacts applies a successful provider result: status
	// processing -> complete, fact fields replaced, last_enriched_at set,
	// last_error cleared, all in one statement. Returns ErrConflict when
	// the record is not in processing (stale or duplicate callback).
	CompleteWithFacts(ctx context.Context, id string, facts *types.EnrichmentFacts, enrichedAt time.Time) error

	// MarkFailed applies a provider failure: status processing -> failed,
	// retaining the error detail. Prior facts are untouched. Returns
	// ErrConflict when the record is not in processing.
	MarkFailed(ctx context.Context, id string, providerErr string) error

	// ListEnrichmentsByStatus returns records currently in the given
	// status, oldest first. Used by startup recovery.
	ListEnrichmentsByStatus(ctx context.Context, status types.EnrichmentStatus, limit int) ([]*types.Enrichment, error)
}

// Store composes all per-entity stores into the full backend contract.
type Store interface {
	ContactStore
	TaskStore
	NoteStore
	VoiceLogStore
	EnrichmentStore

	// Close releases any resources held by the store.
	Close() error
}
