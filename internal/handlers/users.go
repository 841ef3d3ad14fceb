package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamtodo-backend/internal/storage"
)

// ListUsers returns every mirrored user.
// @Summary List users
// @Produce json
// @Success 200 {object} map[string]interface{} "users envelope"
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /api/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR List users: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUser returns the caller's own mirrored record.
// @Summary Get user
// @Produce json
// @Param userId path string true "external user id"
// @Success 200 {object} map[string]interface{} "user envelope"
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/users/{userId} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR Get user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
