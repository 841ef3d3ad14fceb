package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamtodo-backend/internal/models"
	"teamtodo-backend/internal/storage"
)

func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var orgFilter *string
	if v := r.URL.Query().Get("organization_id"); v != "" {
		orgFilter = &v
	}

	todos, err := h.store.ListTodos(r.Context(), userID, orgFilter)
	if err != nil {
		log.Printf("ERROR List todos for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"todos": todos})
}

func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var input models.CreateTodoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Title == "" {
		respondError(w, http.StatusBadRequest, "Todo title is required")
		return
	}

	todo, err := h.store.CreateTodo(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, storage.ErrMissingParent) {
			respondError(w, http.StatusBadRequest, "Unknown user or organization")
			return
		}
		log.Printf("ERROR Create todo for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"todo": todo})
}

func (h *Handler) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	todoID := chi.URLParam(r, "todoId")

	todo, err := h.store.GetTodo(r.Context(), userID, todoID)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			respondError(w, http.StatusNotFound, "Todo not found")
			return
		}
		log.Printf("ERROR Get todo %s for %s: %v", todoID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"todo": todo})
}

func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	todoID := chi.URLParam(r, "todoId")

	var input models.UpdateTodoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Title != nil && *input.Title == "" {
		respondError(w, http.StatusBadRequest, "Todo title is required")
		return
	}

	todo, err := h.store.UpdateTodo(r.Context(), userID, todoID, input)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTodoNotFound):
			respondError(w, http.StatusNotFound, "Todo not found")
		case errors.Is(err, storage.ErrMissingParent):
			respondError(w, http.StatusBadRequest, "Unknown organization")
		default:
			log.Printf("ERROR Update todo %s for %s: %v", todoID, userID, err)
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"todo": todo})
}

// DeleteTodo is a user-initiated delete: unlike webhook-driven deletes,
// a missing row surfaces as 404.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	todoID := chi.URLParam(r, "todoId")

	if err := h.store.DeleteTodo(r.Context(), userID, todoID); err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			respondError(w, http.StatusNotFound, "Todo not found")
			return
		}
		log.Printf("ERROR Delete todo %s for %s: %v", todoID, userID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted"})
}

func (h *Handler) AttachLabel(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	todoID := chi.URLParam(r, "todoId")
	labelID := chi.URLParam(r, "labelId")

	// Ownership check before touching the junction table.
	if _, err := h.store.GetTodo(r.Context(), userID, todoID); err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			respondError(w, http.StatusNotFound, "Todo not found")
			return
		}
		log.Printf("ERROR Attach label %s to %s: %v", labelID, todoID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.store.AttachLabel(r.Context(), todoID, labelID); err != nil {
		if errors.Is(err, storage.ErrMissingParent) {
			respondError(w, http.StatusNotFound, "Label not found")
			return
		}
		log.Printf("ERROR Attach label %s to %s: %v", labelID, todoID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Label attached"})
}

func (h *Handler) DetachLabel(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	todoID := chi.URLParam(r, "todoId")
	labelID := chi.URLParam(r, "labelId")

	if _, err := h.store.GetTodo(r.Context(), userID, todoID); err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			respondError(w, http.StatusNotFound, "Todo not found")
			return
		}
		log.Printf("ERROR Detach label %s from %s: %v", labelID, todoID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.store.DetachLabel(r.Context(), todoID, labelID); err != nil {
		log.Printf("ERROR Detach label %s from %s: %v", labelID, todoID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Label detached"})
}
