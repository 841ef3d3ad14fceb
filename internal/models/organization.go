package models

import "time"

// Organization mirrors the identity provider's organization record.
// ID is the provider-assigned external id, UserID the creating user.
type Organization struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	MembersCount int       `db:"members_count" json:"members_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UpsertOrganizationInput carries provider event fields. MembersCount
// is optional: events that omit it must not clobber the mirrored count.
type UpsertOrganizationInput struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ImageURL     string `json:"image_url"`
	MembersCount *int   `json:"members_count"`
}

// Membership links a user to an organization.
type Membership struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
