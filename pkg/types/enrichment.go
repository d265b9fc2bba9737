package types

import "time"

// EnrichmentStatus represents the lifecycle state of a contact enrichment
// record. The status is a closed enum: once a record exists its status is
// always exactly one of the four values below.
type EnrichmentStatus string

// Enrichment lifecycle status constants.
const (
	// EnrichmentPending indicates the job has been requested but no
	// provider work has started yet. This is the initial state and the
	// re-entry state for retries and refreshes.
	EnrichmentPending EnrichmentStatus = "pending"

	// EnrichmentProcessing indicates a provider call is in flight.
	EnrichmentProcessing EnrichmentStatus = "processing"

	// EnrichmentComplete is the terminal success state: fact fields are
	// populated and LastEnrichedAt is set.
	EnrichmentComplete EnrichmentStatus = "complete"

	// EnrichmentFailed is the terminal failure state. Fact fields are not
	// required; the provider error detail is retained in LastError.
	EnrichmentFailed EnrichmentStatus = "failed"
)

// ValidEnrichmentStatuses contains all valid status values.
var ValidEnrichmentStatuses = []EnrichmentStatus{
	EnrichmentPending,
	EnrichmentProcessing,
	EnrichmentComplete,
	EnrichmentFailed,
}

// IsValidEnrichmentStatus checks if the given status is a valid value.
func IsValidEnrichmentStatus(s EnrichmentStatus) bool {
	for _, valid := range ValidEnrichmentStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// IsValidEnrichmentTransition validates status transitions according to the
// enrichment state machine.
//
// Valid transitions:
//
//	pending    -> processing   (worker claims the job)
//	processing -> complete     (provider returned facts)
//	processing -> failed       (provider error or timeout)
//	failed     -> pending      (explicit retry)
//	complete   -> pending      (explicit refresh; prior facts are kept
//	                            until replaced)
//
// Everything else is illegal. Callers treat an illegal transition as a
// conflict and apply it as a no-op; legality is enforced here centrally
// rather than scattered across call sites.
func IsValidEnrichmentTransition(current, next EnrichmentStatus) bool {
	switch current {
	case EnrichmentPending:
		return next == EnrichmentProcessing
	case EnrichmentProcessing:
		return next == EnrichmentComplete || next == EnrichmentFailed
	case EnrichmentComplete:
		return next == EnrichmentPending
	case EnrichmentFailed:
		return next == EnrichmentPending
	default:
		return false
	}
}

// IsTerminal reports whether the status is a terminal state, i.e. one that
// only an explicit retry or refresh request can leave.
func (s EnrichmentStatus) IsTerminal() bool {
	return s == EnrichmentComplete || s == EnrichmentFailed
}

// NewsItem is a single recent-news entry gathered for a contact. Items are
// stored newest-first; display truncation is a view concern.
type NewsItem struct {
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// EnrichmentFacts bundles the provider-sourced fact fields by provenance
// group: professional profile, employer, social links, and recent news.
type EnrichmentFacts struct {
	// Professional profile
	LinkedInURL      string `json:"linkedin_url,omitempty"`
	LinkedInHeadline string `json:"linkedin_headline,omitempty"`
	LinkedInSummary  string `json:"linkedin_summary,omitempty"`

	// Employer
	CompanyDescription  string `json:"company_description,omitempty"`
	CompanyIndustry     string `json:"company_industry,omitempty"`
	CompanySize         string `json:"company_size,omitempty"`
	CompanyWebsite      string `json:"company_website,omitempty"`
	CompanyFundingStage string `json:"company_funding_stage,omitempty"`

	// Social links
	TwitterURL string `json:"twitter_url,omitempty"`
	GitHubURL  string `json:"github_url,omitempty"`

	// Recent news, newest first. The full list is retained in storage.
	RecentNews []NewsItem `json:"recent_news,omitempty"`
}

// IsEmpty reports whether no fact field has been populated yet. Used to
// derive the "refreshing" display flag: a pending/processing record whose
// facts are non-empty is a refresh, not a first fetch.
func (f *EnrichmentFacts) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.LinkedInURL == "" && f.LinkedInHeadline == "" && f.LinkedInSummary == "" &&
		f.CompanyDescription == "" && f.CompanyIndustry == "" && f.CompanySize == "" &&
		f.CompanyWebsite == "" && f.CompanyFundingStage == "" &&
		f.TwitterURL == "" && f.GitHubURL == "" &&
		len(f.RecentNews) == 0
}

// Enrichment is the record of third-party-sourced facts about a contact and
// their retrieval status. Each contact owns at most one enrichment record;
// the record exists only while its contact exists (cascading delete).
type Enrichment struct {
	ID        string           `json:"id"` // Unique identifier (format: en:<slug>)
	ContactID string           `json:"contact_id"`
	Status    EnrichmentStatus `json:"status"`

	Facts EnrichmentFacts `json:"facts"`

	// LastError retains the most recent provider failure detail for
	// display. It is informational only and does not affect transitions.
	LastError string `json:"last_error,omitempty"`

	// LastEnrichedAt is set each time a cycle reaches complete.
	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Refreshing reports whether the record is in a new retrieval cycle while
// still holding facts from a previous successful cycle. Views use this to
// show "stale but present" data instead of blanking the display.
func (e *Enrichment) Refreshing() bool {
	if e.Status != EnrichmentPending && e.Status != EnrichmentProcessing {
		return false
	}
	return !e.Facts.IsEmpty()
}
