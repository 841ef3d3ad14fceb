package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"teamtodo-backend/internal/auth"
	"teamtodo-backend/internal/models"
	"teamtodo-backend/internal/services"
	"teamtodo-backend/internal/storage"
)

type fakeStore struct {
	users  map[string]models.User
	orgs   map[string]models.Organization
	todos  map[string]models.Todo
	labels map[string]models.Label
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]models.User),
		orgs:   make(map[string]models.Organization),
		todos:  make(map[string]models.Todo),
		labels: make(map[string]models.Label),
	}
}

func (s *fakeStore) Ping() error { return nil }

func (s *fakeStore) GetUser(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, storage.ErrUserNotFound
}

func (s *fakeStore) ListUsers(_ context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *fakeStore) GetUserOrganization(_ context.Context, userID, orgID string) (*models.Organization, error) {
	if org, ok := s.orgs[orgID]; ok && org.UserID == userID {
		return &org, nil
	}
	return nil, storage.ErrOrgNotFound
}

func (s *fakeStore) ListUserOrganizations(_ context.Context, userID string) ([]models.Organization, error) {
	orgs := make([]models.Organization, 0)
	for _, org := range s.orgs {
		if org.UserID == userID {
			orgs = append(orgs, org)
		}
	}
	return orgs, nil
}

func (s *fakeStore) CreateTodo(_ context.Context, userID string, input models.CreateTodoInput) (*models.Todo, error) {
	todo := models.Todo{
		ID:             fmt.Sprintf("todo_%d", len(s.todos)+1),
		Title:          input.Title,
		Description:    input.Description,
		DueDate:        input.DueDate,
		UserID:         userID,
		OrganizationID: input.OrganizationID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.todos[todo.ID] = todo
	return &todo, nil
}

func (s *fakeStore) GetTodo(_ context.Context, userID, todoID string) (*models.Todo, error) {
	if todo, ok := s.todos[todoID]; ok && todo.UserID == userID {
		return &todo, nil
	}
	return nil, storage.ErrTodoNotFound
}

func (s *fakeStore) ListTodos(_ context.Context, userID string, organizationID *string) ([]models.Todo, error) {
	todos := make([]models.Todo, 0)
	for _, todo := range s.todos {
		if todo.UserID != userID {
			continue
		}
		if organizationID != nil {
			if todo.OrganizationID == nil || *todo.OrganizationID != *organizationID {
				continue
			}
		}
		todos = append(todos, todo)
	}
	return todos, nil
}

func (s *fakeStore) UpdateTodo(_ context.Context, userID, todoID string, input models.UpdateTodoInput) (*models.Todo, error) {
	todo, ok := s.todos[todoID]
	if !ok || todo.UserID != userID {
		return nil, storage.ErrTodoNotFound
	}
	if input.Title != nil {
		todo.Title = *input.Title
	}
	if input.Completed != nil {
		todo.Completed = *input.Completed
	}
	s.todos[todoID] = todo
	return &todo, nil
}

func (s *fakeStore) DeleteTodo(_ context.Context, userID, todoID string) error {
	if todo, ok := s.todos[todoID]; ok && todo.UserID == userID {
		delete(s.todos, todoID)
		return nil
	}
	return storage.ErrTodoNotFound
}

func (s *fakeStore) AttachLabel(_ context.Context, todoID, labelID string) error {
	if _, ok := s.labels[labelID]; !ok {
		return storage.ErrMissingParent
	}
	return nil
}

func (s *fakeStore) DetachLabel(_ context.Context, todoID, labelID string) error { return nil }

func (s *fakeStore) CreateLabel(_ context.Context, input models.CreateLabelInput) (*models.Label, error) {
	label := models.Label{ID: "label_" + input.Name, Name: input.Name, Color: input.Color}
	s.labels[label.ID] = label
	return &label, nil
}

func (s *fakeStore) ListLabels(_ context.Context) ([]models.Label, error) {
	labels := make([]models.Label, 0, len(s.labels))
	for _, l := range s.labels {
		labels = append(labels, l)
	}
	return labels, nil
}

func (s *fakeStore) DeleteLabel(_ context.Context, id string) error {
	if _, ok := s.labels[id]; !ok {
		return storage.ErrLabelNotFound
	}
	delete(s.labels, id)
	return nil
}

type fakeIdentity struct {
	createCalls int
	updateCalls int
	deleteCalls int
	err         error
}

func (f *fakeIdentity) CreateOrganization(_ context.Context, createdBy string, input services.OrganizationInput) (*services.ProviderOrganization, error) {
	f.createCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &services.ProviderOrganization{ID: "org_new", Name: input.Name, Slug: input.Slug, CreatedBy: createdBy, MembersCount: 1}, nil
}

func (f *fakeIdentity) UpdateOrganization(_ context.Context, orgID string, input services.OrganizationInput) (*services.ProviderOrganization, error) {
	f.updateCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &services.ProviderOrganization{ID: orgID, Name: input.Name, Slug: input.Slug}, nil
}

func (f *fakeIdentity) DeleteOrganization(_ context.Context, orgID string) error {
	f.deleteCalls++
	return f.err
}

type fakeCache struct {
	activeOrgs map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{activeOrgs: make(map[string]string)}
}

func (c *fakeCache) MarkEventProcessed(string, time.Duration) (bool, error) { return true, nil }
func (c *fakeCache) IncrWithTTL(string, time.Duration) (int64, error)       { return 1, nil }

func (c *fakeCache) GetActiveOrganization(userID string) (string, error) {
	return c.activeOrgs[userID], nil
}

func (c *fakeCache) SetActiveOrganization(userID, orgID string) error {
	c.activeOrgs[userID] = orgID
	return nil
}

func (c *fakeCache) ClearActiveOrganization(userID string) error {
	delete(c.activeOrgs, userID)
	return nil
}

func (c *fakeCache) Close() error { return nil }

var errUpstream = errors.New("upstream failure")

type fixture struct {
	router   chi.Router
	store    *fakeStore
	identity *fakeIdentity
	cache    *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "unit-test-secret")

	store := newFakeStore()
	identity := &fakeIdentity{}
	cacheClient := newFakeCache()

	r := chi.NewRouter()
	New(store, identity, cacheClient).RegisterRoutes(r)

	return &fixture{router: r, store: store, identity: identity, cache: cacheClient}
}

func (f *fixture) request(t *testing.T, method, path, asUser, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)

	if asUser != "" {
		token, err := auth.GenerateToken(asUser, "Member")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
