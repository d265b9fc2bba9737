package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

// taskSortFields whitelists the columns tasks may be sorted by.
var taskSortFields = map[string]bool{
	"title":      true,
	"due_at":     true,
	"priority":   true,
	"created_at": true,
	"updated_at": true,
}

// CreateTask inserts a new task. An empty priority defaults to medium and
// an empty category defaults to followUp.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	if task == nil {
		return storage.ErrInvalidInput
	}
	if task.ID == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	if task.Priority == "" {
		task.Priority = types.PriorityMedium
	}
	if task.Category == "" {
		task.Category = types.CategoryFollowUp
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, due_at, priority, category,
			completed, completed_at, contact_id, contact_name,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, nullableString(task.Description),
		nullableTime(task.DueAt), string(task.Priority), task.Category,
		task.Completed, nullableTime(task.CompletedAt),
		nullableString(task.ContactID), nullableString(task.ContactName),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, due_at, priority, category,
		       completed, completed_at, contact_id, contact_name,
		       created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// UpdateTask replaces a task's mutable fields.
func (s *Store) UpdateTask(ctx context.Context, task *types.Task) error {
	if task == nil {
		return storage.ErrInvalidInput
	}
	if task.ID == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	task.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, due_at = ?, priority = ?,
			category = ?, completed = ?, completed_at = ?,
			contact_id = ?, contact_name = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, nullableString(task.Description),
		nullableTime(task.DueAt), string(task.Priority), task.Category,
		task.Completed, nullableTime(task.CompletedAt),
		nullableString(task.ContactID), nullableString(task.ContactName),
		task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
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

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
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

// ListTasks retrieves tasks with pagination and sorting.
func (s *Store) ListTasks(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Task], error) {
	opts.Normalize(taskSortFields, "created_at", "desc")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, title, description, due_at, priority, category,
		       completed, completed_at, contact_id, contact_name,
		       created_at, updated_at
		FROM tasks
		ORDER BY %s %s
		LIMIT ? OFFSET ?`, opts.SortBy, opts.SortOrder)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return &storage.PaginatedResult[types.Task]{
		Items:    tasks,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(tasks) < total,
	}, nil
}

// SetCompletion updates the completion flag and timestamp in one statement
// so the pair can never drift apart.
func (s *Store) SetCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: task ID is required", storage.ErrInvalidInput)
	}
	if completed && completedAt == nil {
		return fmt.Errorf("%w: completion timestamp is required", storage.ErrInvalidInput)
	}
	if !completed && completedAt != nil {
		return fmt.Errorf("%w: completion timestamp must be nil when reopening", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET completed = ?, completed_at = ?, updated_at = ? WHERE id = ?",
		completed, nullableTime(completedAt), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set task completion: %w", err)
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

func scanTask(row rowScanner) (*types.Task, error) {
	var (
		task                                types.Task
		description, contactID, contactName sql.NullString
		priority                            string
		dueAt, completedAt                  sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.Title, &description, &dueAt, &priority,
		&task.Category, &task.Completed, &completedAt,
		&contactID, &contactName, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Priority = types.TaskPriority(priority)
	task.DueAt = timePtr(dueAt)
	task.CompletedAt = timePtr(completedAt)
	task.ContactID = contactID.String
	task.ContactName = contactName.String

	return &task, nil
}
