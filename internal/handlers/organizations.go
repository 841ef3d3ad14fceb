package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamtodo-backend/internal/services"
	"teamtodo-backend/internal/storage"
)

type organizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListOrganizations returns the organizations the caller created or
// belongs to, newest first.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	orgs, err := h.store.ListUserOrganizations(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR List organizations for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

// CreateOrganization forwards the create to the identity provider.
// The mirror row lands when the provider's organization.created event
// is processed; the mirror store is never written here.
// @Summary Create organization
// @Accept json
// @Produce json
// @Param userId path string true "external user id"
// @Param organization body organizationRequest true "organization"
// @Success 200 {object} map[string]interface{} "organization envelope"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /api/users/{userId}/organizations [post]
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req organizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Organization name is required")
		return
	}

	org, err := h.identity.CreateOrganization(r.Context(), userID, services.OrganizationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		log.Printf("ERROR Create organization for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
}

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	orgID := chi.URLParam(r, "organizationId")

	org, err := h.store.GetUserOrganization(r.Context(), userID, orgID)
	if err != nil {
		if errors.Is(err, storage.ErrOrgNotFound) {
			respondError(w, http.StatusNotFound, "Organization not found")
			return
		}
		log.Printf("ERROR Get organization %s for %s: %v", orgID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
}

// UpdateOrganization forwards the update to the identity provider; the
// mirror catches up via organization.updated.
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	orgID := chi.URLParam(r, "organizationId")

	var req organizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Organization name is required")
		return
	}

	// Only organizations visible to the caller may be updated; the
	// provider call runs under the service key, not the user's.
	if _, err := h.store.GetUserOrganization(r.Context(), userID, orgID); err != nil {
		if errors.Is(err, storage.ErrOrgNotFound) {
			respondError(w, http.StatusNotFound, "Organization not found")
			return
		}
		log.Printf("ERROR Update organization %s for %s: %v", orgID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	org, err := h.identity.UpdateOrganization(r.Context(), orgID, services.OrganizationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		log.Printf("ERROR Update organization %s for %s: %v", orgID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
}

// DeleteOrganization forwards the delete to the identity provider; the
// mirror row (and cascading memberships/todos) go away when the
// organization.deleted event arrives.
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	orgID := chi.URLParam(r, "organizationId")

	if _, err := h.store.GetUserOrganization(r.Context(), userID, orgID); err != nil {
		if errors.Is(err, storage.ErrOrgNotFound) {
			respondError(w, http.StatusNotFound, "Organization not found")
			return
		}
		log.Printf("ERROR Delete organization %s for %s: %v", orgID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.identity.DeleteOrganization(r.Context(), orgID); err != nil {
		log.Printf("ERROR Delete organization %s for %s: %v", orgID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Organization deleted"})
}

type activeOrganizationRequest struct {
	OrganizationID string `json:"organization_id"`
}

// GetActiveOrganization returns the caller's persisted organization
// selection, falling back to the first available organization and
// rehydrating the store when nothing is selected.
func (h *Handler) GetActiveOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	orgID, err := h.cache.GetActiveOrganization(userID)
	if err != nil {
		log.Printf("ERROR Get active organization for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if orgID != "" {
		org, err := h.store.GetUserOrganization(r.Context(), userID, orgID)
		if err == nil {
			respondJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
			return
		}
		if !errors.Is(err, storage.ErrOrgNotFound) {
			log.Printf("ERROR Get active organization %s for %s: %v", orgID, userID, err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		// Selection points at an organization the user no longer sees;
		// fall through to the first available one.
	}

	orgs, err := h.store.ListUserOrganizations(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR List organizations for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if len(orgs) == 0 {
		respondError(w, http.StatusNotFound, "No organization available")
		return
	}

	if err := h.cache.SetActiveOrganization(userID, orgs[0].ID); err != nil {
		log.Printf("WARN Rehydrate active organization for %s: %v", userID, err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organization": orgs[0]})
}

func (h *Handler) SetActiveOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req activeOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrganizationID == "" {
		respondError(w, http.StatusBadRequest, "Organization id is required")
		return
	}

	// Only organizations visible to the caller can be selected.
	org, err := h.store.GetUserOrganization(r.Context(), userID, req.OrganizationID)
	if err != nil {
		if errors.Is(err, storage.ErrOrgNotFound) {
			respondError(w, http.StatusNotFound, "Organization not found")
			return
		}
		log.Printf("ERROR Set active organization for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.cache.SetActiveOrganization(userID, org.ID); err != nil {
		log.Printf("ERROR Persist active organization for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
}

func (h *Handler) ClearActiveOrganization(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.cache.ClearActiveOrganization(userID); err != nil {
		log.Printf("ERROR Clear active organization for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Selection cleared"})
}
