package sqlite

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
// on contact_id rejects a second record for the same contact; the foreign
// key rejects records for missing contacts.
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE id = ?", id)

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
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE contact_id = ?", contactID)

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
// one. The WHERE clause guards on the expected status so that a stale
// caller cannot clobber a concurrent transition; a guard miss on an
// existing row is reported as ErrConflict.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to types.EnrichmentStatus) error {
	if id == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}
	if !types.IsValidEnrichmentTransition(from, to) {
		return fmt.Errorf("%w: illegal transition %s -> %s", storage.ErrConflict, from, to)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE enrichments SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), time.Now(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to transition enrichment: %w", err)
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// CompleteWithFacts applies a successful provider result in one statement:
// processing -> complete, facts replaced wholesale, error cleared.
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
			status = ?,
			linkedin_url = ?, linkedin_headline = ?, linkedin_summary = ?,
			company_description = ?, company_industry = ?, company_size = ?,
			company_website = ?, company_funding_stage = ?,
			twitter_url = ?, github_url = ?, recent_news = ?,
			last_error = NULL, last_enriched_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
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

// MarkFailed applies a provider failure: processing -> failed, retaining
// the error detail. Prior facts are untouched.
func (s *Store) MarkFailed(ctx context.Context, id string, providerErr string) error {
	if id == "" {
		return fmt.Errorf("%w: enrichment ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE enrichments SET status = ?, last_error = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(types.EnrichmentFailed), nullableString(providerErr), time.Now(),
		id, string(types.EnrichmentProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to mark enrichment failed: %w", err)
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// ListEnrichmentsByStatus returns records in the given status, oldest
// first. Used by startup recovery to re-queue interrupted jobs.
func (s *Store) ListEnrichmentsByStatus(ctx context.Context, status types.EnrichmentStatus, limit int) ([]*types.Enrichment, error) {
	if !types.IsValidEnrichmentStatus(status) {
		return nil, fmt.Errorf("%w: invalid enrichment status %q", storage.ErrInvalidInput, status)
	}
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT"+enrichmentColumns+" FROM enrichments WHERE status = ? ORDER BY updated_at ASC LIMIT ?",
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
// (no such record) or ErrConflict (record exists in a different status).
func (s *Store) checkGuardedUpdate(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrichments WHERE id = ?", id).Scan(&count); err != nil {
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
