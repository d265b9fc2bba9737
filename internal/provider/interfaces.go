// Package provider defines the enrichment provider boundary: the external
// collaborator that turns a contact into third-party facts. The lifecycle
// manager treats every provider as fallible and slow; resilience (rate
// limiting, circuit breaking) lives on this side of the boundary.
package provider

import (
	"context"
	"errors"

	"github.com/ekkohq/ekko/pkg/types"
)

// ErrProvider wraps every failure originating from a provider call:
// transport errors, non-2xx responses, and malformed payloads. The
// lifecycle manager stores the message verbatim as the record's LastError.
var ErrProvider = errors.New("enrichment provider error")

// Provider retrieves third-party facts for a contact.
type Provider interface {
	// Enrich gathers facts about the contact. A nil error means the
	// returned facts are complete and can replace the stored ones
	// wholesale. Errors are reported wrapped in ErrProvider.
	Enrich(ctx context.Context, contact *types.Contact) (*types.EnrichmentFacts, error)

	// Name identifies the provider for logging.
	Name() string
}
