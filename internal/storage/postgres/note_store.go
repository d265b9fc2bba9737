package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

var noteSortFields = map[string]bool{
	"title":      true,
	"created_at": true,
	"updated_at": true,
}

// CreateNote inserts a new note.
func (s *Store) CreateNote(ctx context.Context, note *types.Note) error {
	if note == nil {
		return storage.ErrInvalidInput
	}
	if note.ID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	if err := note.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, color, pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		note.ID, note.Title, nullableString(note.Content),
		nullableString(note.Color), note.Pinned,
		note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	return nil
}

// GetNote retrieves a note by ID.
func (s *Store) GetNote(ctx context.Context, id string) (*types.Note, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, color, pinned, created_at, updated_at
		FROM notes WHERE id = $1`, id)

	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return note, nil
}

// UpdateNote replaces a note's mutable fields.
func (s *Store) UpdateNote(ctx context.Context, note *types.Note) error {
	if note == nil {
		return storage.ErrInvalidInput
	}
	if note.ID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	if err := note.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	note.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title = $1, content = $2, color = $3, pinned = $4, updated_at = $5
		WHERE id = $6`,
		note.Title, nullableString(note.Content), nullableString(note.Color),
		note.Pinned, note.UpdatedAt, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeleteNote removes a note by ID.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// ListNotes retrieves notes with pagination and sorting.
func (s *Store) ListNotes(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Note], error) {
	opts.Normalize(noteSortFields, "updated_at", "desc")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, title, content, color, pinned, created_at, updated_at
		FROM notes
		ORDER BY %s %s
		LIMIT $1 OFFSET $2`, opts.SortBy, opts.SortOrder)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return &storage.PaginatedResult[types.Note]{
		Items:    notes,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(notes) < total,
	}, nil
}

// SetPinned updates the pinned flag in a single statement.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE notes SET pinned = $1, updated_at = $2 WHERE id = $3",
		pinned, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set note pin: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func scanNote(row rowScanner) (*types.Note, error) {
	var (
		note           types.Note
		content, color sql.NullString
	)

	err := row.Scan(
		&note.ID, &note.Title, &content, &color, &note.Pinned,
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	note.Content = content.String
	note.Color = color.String

	return &note, nil
}
