package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedRouter() (chi.Router, *bool) {
	reached := false
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Middleware)
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(RequireSelf)
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})
		})
	})
	return r, &reached
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	r, reached := newGuardedRouter()

	req := httptest.NewRequest(http.MethodGet, "/users/u1/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	r, reached := newGuardedRouter()

	req := httptest.NewRequest(http.MethodGet, "/users/u1/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestRequireSelfRejectsOtherUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	r, reached := newGuardedRouter()

	token, err := GenerateToken("u2", "Member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestRequireSelfAllowsOwner(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	r, reached := newGuardedRouter()

	token, err := GenerateToken("u1", "Member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}
