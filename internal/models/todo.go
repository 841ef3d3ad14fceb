package models

import "time"

// Todo is local domain data layered on top of the mirrored identity
// records. UserID is required; OrganizationID marks a shared todo.
type Todo struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Completed      bool       `db:"completed" json:"completed"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	UserID         string     `db:"user_id" json:"user_id"`
	OrganizationID *string    `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	Labels []Label `db:"-" json:"labels,omitempty"`
}

type CreateTodoInput struct {
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	OrganizationID *string    `json:"organization_id"`
}

type UpdateTodoInput struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Completed      *bool      `json:"completed"`
	DueDate        *time.Time `json:"due_date"`
	OrganizationID *string    `json:"organization_id"`
}

type Label struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type CreateLabelInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}
