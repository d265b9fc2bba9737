package types

import (
	"fmt"
	"strings"
	"time"
)

// Note represents a free-form note. Notes carry no derived state beyond
// their sort position: pinned notes always precede unpinned ones.
type Note struct {
	ID      string `json:"id"` // Unique identifier (format: nt:<slug>)
	Title   string `json:"title"`
	Content string `json:"content"`

	// Color is a display color token (e.g. "yellow", "blue").
	Color string `json:"color,omitempty"`

	Pinned bool `json:"pinned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the note's required fields.
func (n *Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: note title is required", ErrValidation)
	}
	return nil
}
