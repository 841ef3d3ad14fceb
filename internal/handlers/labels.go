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

func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.store.ListLabels(r.Context())
	if err != nil {
		log.Printf("ERROR List labels: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"labels": labels})
}

func (h *Handler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	var input models.CreateLabelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Name == "" {
		respondError(w, http.StatusBadRequest, "Label name is required")
		return
	}

	label, err := h.store.CreateLabel(r.Context(), input)
	if err != nil {
		log.Printf("ERROR Create label: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"label": label})
}

func (h *Handler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "labelId")

	if err := h.store.DeleteLabel(r.Context(), labelID); err != nil {
		if errors.Is(err, storage.ErrLabelNotFound) {
			respondError(w, http.StatusNotFound, "Label not found")
			return
		}
		log.Printf("ERROR Delete label %s: %v", labelID, err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Label deleted"})
}
