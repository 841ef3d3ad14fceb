package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamtodo-backend/internal/auth"
	"teamtodo-backend/internal/cache"
	"teamtodo-backend/internal/models"
	"teamtodo-backend/internal/services"
)

// Store is the mirror-store surface the resource API reads and, for
// local domain data (todos, labels), writes. Mirrored entities (users,
// organizations) are read-only here: the synchronization handler is
// their only writer.
type Store interface {
	Ping() error

	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	GetUserOrganization(ctx context.Context, userID, orgID string) (*models.Organization, error)
	ListUserOrganizations(ctx context.Context, userID string) ([]models.Organization, error)

	CreateTodo(ctx context.Context, userID string, input models.CreateTodoInput) (*models.Todo, error)
	GetTodo(ctx context.Context, userID, todoID string) (*models.Todo, error)
	ListTodos(ctx context.Context, userID string, organizationID *string) ([]models.Todo, error)
	UpdateTodo(ctx context.Context, userID, todoID string, input models.UpdateTodoInput) (*models.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID string) error
	AttachLabel(ctx context.Context, todoID, labelID string) error
	DetachLabel(ctx context.Context, todoID, labelID string) error

	CreateLabel(ctx context.Context, input models.CreateLabelInput) (*models.Label, error)
	ListLabels(ctx context.Context) ([]models.Label, error)
	DeleteLabel(ctx context.Context, id string) error
}

// IdentityGateway covers the organization mutations the API forwards
// to the provider (system of record for org identity).
type IdentityGateway interface {
	CreateOrganization(ctx context.Context, createdBy string, input services.OrganizationInput) (*services.ProviderOrganization, error)
	UpdateOrganization(ctx context.Context, orgID string, input services.OrganizationInput) (*services.ProviderOrganization, error)
	DeleteOrganization(ctx context.Context, orgID string) error
}

type Handler struct {
	store    Store
	identity IdentityGateway
	cache    cache.Client
}

func New(store Store, identity IdentityGateway, cacheClient cache.Client) *Handler {
	return &Handler{
		store:    store,
		identity: identity,
		cache:    cacheClient,
	}
}

// RegisterRoutes mounts the authenticated resource API. Callers mount
// it under /api; the webhook endpoint is registered separately and
// never passes through session auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(auth.Middleware)

	r.Get("/users", h.ListUsers)

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Use(auth.RequireSelf)

		r.Get("/", h.GetUser)

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", h.ListOrganizations)
			r.Post("/", h.CreateOrganization)
			r.Get("/{organizationId}", h.GetOrganization)
			r.Put("/{organizationId}", h.UpdateOrganization)
			r.Delete("/{organizationId}", h.DeleteOrganization)
		})

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", h.ListTodos)
			r.Post("/", h.CreateTodo)
			r.Get("/{todoId}", h.GetTodo)
			r.Put("/{todoId}", h.UpdateTodo)
			r.Delete("/{todoId}", h.DeleteTodo)
			r.Put("/{todoId}/labels/{labelId}", h.AttachLabel)
			r.Delete("/{todoId}/labels/{labelId}", h.DetachLabel)
		})

		r.Route("/active-organization", func(r chi.Router) {
			r.Get("/", h.GetActiveOrganization)
			r.Put("/", h.SetActiveOrganization)
			r.Delete("/", h.ClearActiveOrganization)
		})
	})

	r.Route("/labels", func(r chi.Router) {
		r.Get("/", h.ListLabels)
		r.Post("/", h.CreateLabel)
		r.Delete("/{labelId}", h.DeleteLabel)
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	if err := h.store.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
