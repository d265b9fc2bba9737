package views

import (
	"strings"

	"github.com/ekkohq/ekko/pkg/types"
)

// FilterContacts returns contacts whose first name, last name, company,
// email, or any tag contains the query, case-insensitively. An empty query
// matches everything. Input order is preserved.
func FilterContacts(contacts []types.Contact, query string) []types.Contact {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]types.Contact, len(contacts))
		copy(out, contacts)
		return out
	}

	out := make([]types.Contact, 0, len(contacts))
	for _, c := range contacts {
		if contactMatches(&c, query) {
			out = append(out, c)
		}
	}
	return out
}

func contactMatches(c *types.Contact, query string) bool {
	if strings.Contains(strings.ToLower(c.FirstName), query) ||
		strings.Contains(strings.ToLower(c.LastName), query) ||
		strings.Contains(strings.ToLower(c.Company), query) ||
		strings.Contains(strings.ToLower(c.Email), query) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
