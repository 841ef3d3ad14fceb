package storage

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"teamtodo-backend/internal/models"
)

const orgColumns = `id, user_id, name, slug, image_url, members_count, created_at, updated_at`

// UpsertOrganization inserts or refreshes a mirrored organization row
// keyed by the provider's external id. A nil MembersCount leaves the
// stored count alone (defaulting to 1 on first insert): the count
// belongs to membership events and profile updates may omit it.
func (s *Storage) UpsertOrganization(ctx context.Context, input models.UpsertOrganizationInput) (*models.Organization, error) {
	query := `
		INSERT INTO organizations (id, user_id, name, slug, image_url, members_count)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::int, 1))
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			image_url = EXCLUDED.image_url,
			members_count = COALESCE($6::int, organizations.members_count),
			updated_at = NOW()
		RETURNING ` + orgColumns

	var org models.Organization
	err := s.db.QueryRowContext(ctx, query,
		input.ID, input.UserID, input.Name, input.Slug, input.ImageURL, input.MembersCount,
	).Scan(
		&org.ID,
		&org.UserID,
		&org.Name,
		&org.Slug,
		&org.ImageURL,
		&org.MembersCount,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &org, nil
}

// UpdateOrganizationProfile updates the mutable fields by external id.
// Missing rows are a no-op so out-of-order updates never fail.
func (s *Storage) UpdateOrganizationProfile(ctx context.Context, id, name, slug, imageURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET name = $1, slug = $2, image_url = $3, updated_at = NOW()
		WHERE id = $4
	`, name, slug, imageURL, id)
	return err
}

// UpdateOrganizationMembersCount overwrites the denormalized member
// count with the value carried by the membership event.
func (s *Storage) UpdateOrganizationMembersCount(ctx context.Context, id string, count int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET members_count = $1, updated_at = NOW()
		WHERE id = $2
	`, count, id)
	return err
}

// DeleteOrganization removes the mirrored organization; memberships and
// organization-scoped todos cascade. Idempotent.
func (s *Storage) DeleteOrganization(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

// GetUserOrganization returns the organization only when the user is a
// member of it (or created it).
func (s *Storage) GetUserOrganization(ctx context.Context, userID, orgID string) (*models.Organization, error) {
	query := `
		SELECT DISTINCT o.id, o.user_id, o.name, o.slug, o.image_url, o.members_count, o.created_at, o.updated_at
		FROM organizations o
		LEFT JOIN organizations_to_users otu ON otu.organization_id = o.id
		WHERE o.id = $2 AND (o.user_id = $1 OR otu.user_id = $1)
	`

	var org models.Organization
	if err := s.db.GetContext(ctx, &org, query, userID, orgID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	return &org, nil
}

// ListUserOrganizations returns every organization the user created or
// belongs to, newest first.
func (s *Storage) ListUserOrganizations(ctx context.Context, userID string) ([]models.Organization, error) {
	query := `
		SELECT DISTINCT o.id, o.user_id, o.name, o.slug, o.image_url, o.members_count, o.created_at, o.updated_at
		FROM organizations o
		LEFT JOIN organizations_to_users otu ON otu.organization_id = o.id
		WHERE o.user_id = $1 OR otu.user_id = $1
		ORDER BY o.created_at DESC
	`

	orgs := make([]models.Organization, 0)
	if err := s.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, err
	}
	return orgs, nil
}

// UpsertMembership links a user to an organization. Repeated delivery
// of the same membership event leaves a single row.
func (s *Storage) UpsertMembership(ctx context.Context, orgID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations_to_users (id, organization_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id)
		DO UPDATE SET updated_at = NOW()
	`, uuid.New().String(), orgID, userID)
	if err != nil && isForeignKeyViolation(err) {
		return ErrMissingParent
	}
	return err
}
