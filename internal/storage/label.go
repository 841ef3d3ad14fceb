package storage

import (
	"context"

	"github.com/google/uuid"

	"teamtodo-backend/internal/models"
)

func (s *Storage) CreateLabel(ctx context.Context, input models.CreateLabelInput) (*models.Label, error) {
	color := input.Color
	if color == "" {
		color = "#000000"
	}

	query := `
		INSERT INTO labels (id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id, name, color, created_at, updated_at
	`

	var label models.Label
	err := s.db.QueryRowContext(ctx, query, uuid.New().String(), input.Name, color).Scan(
		&label.ID,
		&label.Name,
		&label.Color,
		&label.CreatedAt,
		&label.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &label, nil
}

func (s *Storage) ListLabels(ctx context.Context) ([]models.Label, error) {
	query := `
		SELECT id, name, color, created_at, updated_at
		FROM labels
		ORDER BY name
	`

	labels := make([]models.Label, 0)
	if err := s.db.SelectContext(ctx, &labels, query); err != nil {
		return nil, err
	}
	return labels, nil
}

func (s *Storage) DeleteLabel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLabelNotFound
	}
	return nil
}
