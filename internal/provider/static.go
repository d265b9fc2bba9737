package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

// StaticProvider returns deterministic facts derived from the contact
// itself. It is used in development and tests, where no intelligence API
// is configured, and never fails.
type StaticProvider struct{}

// NewStaticProvider creates a new static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// Name identifies the provider for logging.
func (p *StaticProvider) Name() string {
	return "static"
}

// Enrich synthesizes facts from the contact's own fields so the full
// lifecycle can run offline.
func (p *StaticProvider) Enrich(_ context.Context, contact *types.Contact) (*types.EnrichmentFacts, error) {
	if contact == nil {
		return nil, fmt.Errorf("%w: nil contact", ErrProvider)
	}

	slug := strings.ToLower(contact.FirstName + "-" + contact.LastName)
	slug = strings.ReplaceAll(slug, " ", "-")

	facts := &types.EnrichmentFacts{
		LinkedInURL:      "https://linkedin.com/in/" + slug,
		LinkedInHeadline: contact.Role,
		TwitterURL:       "https://twitter.com/" + slug,
	}
	if contact.LinkedIn != "" {
		facts.LinkedInURL = contact.LinkedIn
	}
	if contact.Company != "" {
		facts.CompanyDescription = contact.Company + " (no public description available)"
		facts.CompanyWebsite = "https://" + strings.ToLower(strings.ReplaceAll(contact.Company, " ", "")) + ".example.com"
		now := time.Now().UTC()
		facts.RecentNews = []types.NewsItem{
			{Title: contact.Company + " in the news", PublishedAt: &now},
		}
	}

	return facts, nil
}
