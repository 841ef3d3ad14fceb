package storage

import (
	"context"
	"database/sql"

	"teamtodo-backend/internal/models"
)

// UpsertUser inserts or refreshes a mirrored user row keyed by the
// provider's external id. Safe to apply for out-of-order or repeated
// event deliveries.
func (s *Storage) UpsertUser(ctx context.Context, input models.UpsertUserInput) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, first_name, last_name, image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		RETURNING id, email, first_name, last_name, image_url, role, created_at, updated_at
	`

	var user models.User
	err := s.db.QueryRowContext(ctx, query,
		input.ID, input.Email, input.FirstName, input.LastName, input.ImageURL,
	).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ImageURL,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &user, nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, image_url, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, image_url, role, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`

	users := make([]models.User, 0)
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserRole sets the mirrored role claim. Missing rows are a
// no-op: the membership event may outrun user.created.
func (s *Storage) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2
	`, role, id)
	return err
}

// DeleteUser removes the mirrored user; todos and memberships cascade.
// Deleting an already-gone row is success, not failure.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
