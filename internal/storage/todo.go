package storage

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"teamtodo-backend/internal/models"
)

const todoColumns = `id, title, description, completed, due_date, user_id, organization_id, created_at, updated_at`

func (s *Storage) CreateTodo(ctx context.Context, userID string, input models.CreateTodoInput) (*models.Todo, error) {
	query := `
		INSERT INTO todos (id, title, description, due_date, user_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + todoColumns

	var todo models.Todo
	err := s.db.QueryRowContext(ctx, query,
		uuid.New().String(), input.Title, input.Description, input.DueDate, userID, input.OrganizationID,
	).Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&todo.DueDate,
		&todo.UserID,
		&todo.OrganizationID,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrMissingParent
		}
		return nil, err
	}

	return &todo, nil
}

func (s *Storage) GetTodo(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE id = $1 AND user_id = $2
	`

	var todo models.Todo
	if err := s.db.GetContext(ctx, &todo, query, todoID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}

	labels, err := s.listTodoLabels(ctx, todo.ID)
	if err != nil {
		return nil, err
	}
	todo.Labels = labels

	return &todo, nil
}

// ListTodos returns the user's todos, optionally filtered to one
// organization, newest first.
func (s *Storage) ListTodos(ctx context.Context, userID string, organizationID *string) ([]models.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1 AND ($2::text IS NULL OR organization_id = $2)
		ORDER BY created_at DESC
	`

	todos := make([]models.Todo, 0)
	if err := s.db.SelectContext(ctx, &todos, query, userID, organizationID); err != nil {
		return nil, err
	}
	return todos, nil
}

// UpdateTodo applies the provided fields; nil fields keep their value.
func (s *Storage) UpdateTodo(ctx context.Context, userID, todoID string, input models.UpdateTodoInput) (*models.Todo, error) {
	query := `
		UPDATE todos
		SET title = COALESCE($3, title),
			description = COALESCE($4, description),
			completed = COALESCE($5, completed),
			due_date = COALESCE($6, due_date),
			organization_id = COALESCE($7, organization_id),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + todoColumns

	var todo models.Todo
	err := s.db.QueryRowContext(ctx, query,
		todoID, userID, input.Title, input.Description, input.Completed, input.DueDate, input.OrganizationID,
	).Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&todo.DueDate,
		&todo.UserID,
		&todo.OrganizationID,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrMissingParent
		}
		return nil, err
	}

	return &todo, nil
}

// DeleteTodo removes a user's todo. Unlike webhook-driven deletes this
// is user-initiated, so a missing row is reported as not found.
func (s *Storage) DeleteTodo(ctx context.Context, userID, todoID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM todos WHERE id = $1 AND user_id = $2
	`, todoID, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (s *Storage) AttachLabel(ctx context.Context, todoID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos_to_labels (id, todo_id, label_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (todo_id, label_id) DO NOTHING
	`, uuid.New().String(), todoID, labelID)
	if err != nil && isForeignKeyViolation(err) {
		return ErrMissingParent
	}
	return err
}

func (s *Storage) DetachLabel(ctx context.Context, todoID, labelID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM todos_to_labels WHERE todo_id = $1 AND label_id = $2
	`, todoID, labelID)
	return err
}

func (s *Storage) listTodoLabels(ctx context.Context, todoID string) ([]models.Label, error) {
	query := `
		SELECT l.id, l.name, l.color, l.created_at, l.updated_at
		FROM labels l
		JOIN todos_to_labels ttl ON ttl.label_id = l.id
		WHERE ttl.todo_id = $1
		ORDER BY l.name
	`

	labels := make([]models.Label, 0)
	if err := s.db.SelectContext(ctx, &labels, query, todoID); err != nil {
		return nil, err
	}
	return labels, nil
}
