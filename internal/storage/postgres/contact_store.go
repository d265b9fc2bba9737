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

var contactSortFields = map[string]bool{
	"first_name":      true,
	"last_name":       true,
	"company":         true,
	"created_at":      true,
	"updated_at":      true,
	"last_contact_at": true,
}

// CreateContact inserts a new contact.
func (s *Store) CreateContact(ctx context.Context, contact *types.Contact) error {
	if contact == nil {
		return storage.ErrInvalidInput
	}
	if contact.ID == "" {
		return fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}
	if err := contact.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	tagsJSON, err := json.Marshal(contact.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contacts (
			id, first_name, last_name, company, role, email, phone,
			linkedin, notes, tags, avatar_color, last_contact_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		contact.ID, contact.FirstName, contact.LastName,
		nullableString(contact.Company), nullableString(contact.Role),
		nullableString(contact.Email), nullableString(contact.Phone),
		nullableString(contact.LinkedIn), nullableString(contact.Notes),
		string(tagsJSON), nullableString(contact.AvatarColor),
		nullableTime(contact.LastContactAt),
		contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	return nil
}

// GetContact retrieves a contact by ID.
func (s *Store) GetContact(ctx context.Context, id string) (*types.Contact, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, company, role, email, phone,
		       linkedin, notes, tags, avatar_color, last_contact_at,
		       created_at, updated_at
		FROM contacts WHERE id = $1`, id)

	contact, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// UpdateContact replaces a contact's mutable fields.
func (s *Store) UpdateContact(ctx context.Context, contact *types.Contact) error {
	if contact == nil {
		return storage.ErrInvalidInput
	}
	if contact.ID == "" {
		return fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}
	if err := contact.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	tagsJSON, err := json.Marshal(contact.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	contact.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET
			first_name = $1, last_name = $2, company = $3, role = $4,
			email = $5, phone = $6, linkedin = $7, notes = $8, tags = $9,
			avatar_color = $10, last_contact_at = $11, updated_at = $12
		WHERE id = $13`,
		contact.FirstName, contact.LastName,
		nullableString(contact.Company), nullableString(contact.Role),
		nullableString(contact.Email), nullableString(contact.Phone),
		nullableString(contact.LinkedIn), nullableString(contact.Notes),
		string(tagsJSON), nullableString(contact.AvatarColor),
		nullableTime(contact.LastContactAt), contact.UpdatedAt,
		contact.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
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

// DeleteContact removes a contact. The enrichment row follows via the
// ON DELETE CASCADE foreign key.
func (s *Store) DeleteContact(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: contact ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
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

// ListContacts retrieves contacts with pagination and sorting.
func (s *Store) ListContacts(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Contact], error) {
	opts.Normalize(contactSortFields, "last_name", "asc")

	total, err := s.CountContacts(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, company, role, email, phone,
		       linkedin, notes, tags, avatar_color, last_contact_at,
		       created_at, updated_at
		FROM contacts
		ORDER BY %s %s
		LIMIT $1 OFFSET $2`, opts.SortBy, opts.SortOrder)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []types.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return &storage.PaginatedResult[types.Contact]{
		Items:    contacts,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(contacts) < total,
	}, nil
}

// CountContacts returns the total number of contacts.
func (s *Store) CountContacts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func scanContact(row rowScanner) (*types.Contact, error) {
	var (
		contact                                      types.Contact
		company, role, email, phone, linkedin, notes sql.NullString
		tagsJSON, avatarColor                        sql.NullString
		lastContactAt                                sql.NullTime
	)

	err := row.Scan(
		&contact.ID, &contact.FirstName, &contact.LastName,
		&company, &role, &email, &phone, &linkedin, &notes,
		&tagsJSON, &avatarColor, &lastContactAt,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	contact.Company = company.String
	contact.Role = role.String
	contact.Email = email.String
	contact.Phone = phone.String
	contact.LinkedIn = linkedin.String
	contact.Notes = notes.String
	contact.AvatarColor = avatarColor.String
	contact.LastContactAt = timePtr(lastContactAt)

	if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &contact.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	return &contact, nil
}
