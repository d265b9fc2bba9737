package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

const enrichmentColumns = `
	id, contact_id, status,
	linkedin_url, linkedin_headline, linkedin_summary,
	company_description, company_industry, company_size,
	company_website, company_funding_stage,
	twitter_url, github_url, recent_news,
	last_error, last_enriched_at, created_at, updated_at`

// CreateEnrichment inserts a new enrichment record. The UNIQUE constraint
// on contact_id and the foreign key enforce the ownership rules.
func (s *Store) CreateEnrichment(ctx context.Context, enrichment *types.Enrichment) error {
	if enrichment == nil {
		return storage.ErrInvalidInput
	}
	if enrichment.ID == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}
	if enrichment.ContactID == "" {
		return fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}
	if !types.IsValidEnrichmentStatus(enrichment.Status) {
		return fmt.Errorf("%w: invalid enrichment status %q", storage.ErrInvalidInput, enrichment.Status)
	}

	newsJSON, err := json.Marshal(enrichment.Facts.RecentNews)
	if err != nil {
		return fmt.Errorf("failed to marshal recent news: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enrichments (`+enrichmentColumns+`
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		enrichment.ID, enrichment.ContactID, string(enrichment.Status),
		nullableString(enrichment.Facts.LinkedInURL),
		nullableString(enrichment.Facts.LinkedInHeadline),
		nullableString(enrichment.Facts.LinkedInSummary),
		nullableString(enrichment.Facts.CompanyDescription),
		nullableString(enrichment.Facts.CompanyIndustry),
		nullableString(enrichment.Facts.CompanySize),
		nullableString(enrichment.Facts.CompanyWebsite),
		nullableString(enrichment.Facts.CompanyFundingStage),
		nullableString(enrichment.Facts.TwitterURL),
		nullableString(enrichment.Facts.GitHubURL),
		string(newsJSON),
		nullableString(enrichment.LastError),
		nullableTime(enrichment.LastEnrichedAt),
		enrichment.CreatedAt, enrichment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert enrichment: %w", err)
	}

	return nil
}

// GetEnrichment retrieves an enrichment by its own ID.
func (s *Store) GetEnrichment(ctx context.Context, id string) (*types.Enrichment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE id = $1", id)

	enrichment, err := scanEnrichment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment: %w", err)
	}

	return enrichment, nil
}

// GetEnrichmentByContact retrieves the enrichment owned by the given
// contact.
func (s *Store) GetEnrichmentByContact(ctx context.Context, contactID string) (*types.Enrichment, error) {
	if contactID == "" {
		return nil, fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE contact_id = $1", contactID)

	enrichment, err := scanEnrichment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment by contact: %w", err)
	}

	return enrichment, nil
}

// TransitionStatus moves the record from the expected status to the next
// one, guarded by the expected status.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to types.EnrichmentStatus) error {
	if id == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}
	if !types.IsValidEnrichmentTransition(from, to) {
		return fmt.Errorf("%w: illegal transition %s -> %s", storage.ErrConflict, from, to)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE enrichments SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		string(to), time.Now(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to transition enrichment: %w", err)
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// CompleteWithFacts applies a successful provider result in one statement.
func (s *Store) CompleteWithFacts(ctx context.Context, id string, facts *types.EnrichmentFacts, enrichedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}
	if facts == nil {
		return fmt.Errorf("%w: facts are required", storage.ErrInvalidInput)
	}

	newsJSON, err := json.Marshal(facts.RecentNews)
	if err != nil {
		return fmt.Errorf("failed to marshal recent news: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE enrichments SET
			status = $1,
			linkedin_url = $2, linkedin_headline = $3, linkedin_summary = $4,
			company_description = $5, company_industry = $6, company_size = $7,
			company_website = $8, company_funding_stage = $9,
			twitter_url = $10, github_url = $11, recent_news = $12,
			last_error = NULL, last_enriched_at = $13, updated_at = $14
		WHERE id = $15 AND status = $16`,
		string(types.EnrichmentComplete),
		nullableString(facts.LinkedInURL),
		nullableString(facts.LinkedInHeadline),
		nullableString(facts.LinkedInSummary),
		nullableString(facts.CompanyDescription),
		nullableString(facts.CompanyIndustry),
		nullableString(facts.CompanySize),
		nullableString(facts.CompanyWebsite),
		nullableString(facts.CompanyFundingStage),
		nullableString(facts.TwitterURL),
		nullableString(facts.GitHubURL),
		string(newsJSON),
		enrichedAt, time.Now(),
		id, string(types.EnrichmentProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to complete enrichment: %w", err)
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// MarkFailed applies a provider failure, retaining the error detail.
func (s *Store) MarkFailed(ctx context.Context, id string, providerErr string) error {
	if id == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE enrichments SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4 AND status = $5",
		string(types.EnrichmentFailed), nullableString(providerErr), time.Now(),
		id, string(types.EnrichmentProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to mark enrichment failed: %w", err)
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// ListEnrichmentsByStatus returns records in the given status, oldest
// first.
func (s *Store) ListEnrichmentsByStatus(ctx context.Context, status types.EnrichmentStatus, limit int) ([]*types.Enrichment, error) {
	if !types.IsValidEnrichmentStatus(status) {
		return nil, fmt.Errorf("%w: invalid enrichment status %q", storage.ErrInvalidInput, status)
	}
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE status = $1 ORDER BY updated_at ASC LIMIT $2",
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrichments: %w", err)
	}
	defer rows.Close()

	var enrichments []*types.Enrichment
	for rows.Next() {
		enrichment, err := scanEnrichment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrichment: %w", err)
		}
		enrichments = append(enrichments, enrichment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enrichments: %w", err)
	}

	return enrichments, nil
}

// checkGuardedUpdate resolves a zero-row guarded UPDATE into ErrNotFound
// or ErrConflict.
func (s *Store) checkGuardedUpdate(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrichments WHERE id = $1", id).Scan(&count); err != nil {
		return fmt.Errorf("failed to check enrichment existence: %w", err)
	}
	if count == 0 {
		return storage.ErrNotFound
	}

	return storage.ErrConflict
}

func scanEnrichment(row rowScanner) (*types.Enrichment, error) {
	var (
		enrichment types.Enrichment
		status     string

		linkedinURL, linkedinHeadline, linkedinSummary   sql.NullString
		companyDescription, companyIndustry, companySize sql.NullString
		companyWebsite, companyFundingStage              sql.NullString
		twitterURL, githubURL, newsJSON, lastError       sql.NullString

		lastEnrichedAt sql.NullTime
	)

	err := row.Scan(
		&enrichment.ID, &enrichment.ContactID, &status,
		&linkedinURL, &linkedinHeadline, &linkedinSummary,
		&companyDescription, &companyIndustry, &companySize,
		&companyWebsite, &companyFundingStage,
		&twitterURL, &githubURL, &newsJSON,
		&lastError, &lastEnrichedAt,
		&enrichment.CreatedAt, &enrichment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	enrichment.Status = types.EnrichmentStatus(status)
	enrichment.Facts.LinkedInURL = linkedinURL.String
	enrichment.Facts.LinkedInHeadline = linkedinHeadline.String
	enrichment.Facts.LinkedInSummary = linkedinSummary.String
	enrichment.Facts.CompanyDescription = companyDescription.String
	enrichment.Facts.CompanyIndustry = companyIndustry.String
	enrichment.Facts.CompanySize = companySize.String
	enrichment.Facts.CompanyWebsite = companyWebsite.String
	enrichment.Facts.CompanyFundingStage = companyFundingStage.String
	enrichment.Facts.TwitterURL = twitterURL.String
	enrichment.Facts.GitHubURL = githubURL.String
	enrichment.LastError = lastError.String
	enrichment.LastEnrichedAt = timePtr(lastEnrichedAt)

	if newsJSON.Valid && newsJSON.String != "" && newsJSON.String != "null" {
		if err := json.Unmarshal([]byte(newsJSON.String), &enrichment.Facts.RecentNews); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recent news: %w", err)
		}
	}

	return &enrichment, nil
}
