package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

// voiceLogSortFields whitelists the columns voice logs may be sorted by.
// The log is chronological; created_at is the only meaningful order.
var voiceLogSortFields = map[string]bool{
	"created_at": true,
}

// AppendVoiceLog inserts a new voice log entry. Entries are immutable once
// written.
func (s *Store) AppendVoiceLog(ctx context.Context, log *types.VoiceLog) error {
	if log == nil {
		return storage.ErrInvalidInput
	}
	if log.ID == "" {
		return fmt.Errorf("%w: voice log ID is required", storage.ErrInvalidInput)
	}
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_logs (id, transcription, intent, response, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		log.ID, log.Transcription, log.Intent,
		nullableString(log.Response), log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert voice log: %w", err)
	}

	return nil
}

// ListVoiceLogs retrieves voice logs with pagination, newest first by
// default.
func (s *Store) ListVoiceLogs(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.VoiceLog], error) {
	opts.Normalize(voiceLogSortFields, "created_at", "desc")

	total, err := s.CountVoiceLogs(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, transcription, intent, response, created_at
		FROM voice_logs
		ORDER BY created_at %s
		LIMIT ? OFFSET ?`, opts.SortOrder)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list voice logs: %w", err)
	}
	defer rows.Close()

	var logs []types.VoiceLog
	for rows.Next() {
		var (
			log      types.VoiceLog
			response sql.NullString
		)
		if err := rows.Scan(&log.ID, &log.Transcription, &log.Intent, &response, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan voice log: %w", err)
		}
		log.Response = response.String
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voice logs: %w", err)
	}

	return &storage.PaginatedResult[types.VoiceLog]{
		Items:    logs,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(logs) < total,
	}, nil
}

// CountVoiceLogs returns the total number of voice log entries.
func (s *Store) CountVoiceLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM voice_logs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count voice logs: %w", err)
	}
	return count, nil
}
