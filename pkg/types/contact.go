// Package types defines the core data structures for the Ekko relationship
// backend: contacts, tasks, notes, voice logs, and the contact enrichment
// record with its lifecycle status machine.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Contact represents a person in the relationship manager.
// A contact owns at most one Enrichment record (created lazily when the
// contact is stored).
type Contact struct {
	ID        string `json:"id"` // Unique identifier (format: ct:<slug>)
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Optional profile fields
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// Tags is a deduplicated, unordered set of labels.
	Tags []string `json:"tags,omitempty"`

	// AvatarColor is a display color token (e.g. "cyan", "orange").
	AvatarColor string `json:"avatar_color,omitempty"`

	// LastContactAt records the most recent interaction, if known.
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultAvatarColors are the color tokens cycled through when a contact is
// created without an explicit avatar color.
var DefaultAvatarColors = []string{
	"cyan", "orange", "purple", "green", "pink", "blue", "yellow",
}

// Validate checks the contact's required fields.
// First and last name must both be non-empty after trimming.
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrValidation)
	}
	if strings.TrimSpace(c.LastName) == "" {
		return fmt.Errorf("%w: last name is required", ErrValidation)
	}
	return nil
}

// DisplayName returns the contact's full display name.
func (c *Contact) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NormalizeTags deduplicates the contact's tags case-sensitively while
// dropping empty entries. The result is sorted so that equal tag sets
// compare equal regardless of input order.
func (c *Contact) NormalizeTags() {
	if len(c.Tags) == 0 {
		return
	}
	seen := make(map[string]bool, len(c.Tags))
	tags := c.Tags[:0]
	for _, t := range c.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	sort.Strings(tags)
	c.Tags = tags
}
