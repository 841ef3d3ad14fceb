package storage

import (
	"context"
	_ "embed"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrOrgNotFound   = errors.New("organization not found")
	ErrTodoNotFound  = errors.New("todo not found")
	ErrLabelNotFound = errors.New("label not found")
	ErrEmailTaken    = errors.New("email already taken")

	// ErrMissingParent surfaces a foreign key violation: the referenced
	// user or organization row has not been mirrored yet.
	ErrMissingParent = errors.New("referenced row does not exist")
)

//go:embed schema.sql
var schema string

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// EnsureSchema applies the embedded schema. Statements are guarded
// with IF NOT EXISTS so repeated startups are safe.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Storage) Ping() error {
	return s.db.Ping()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
