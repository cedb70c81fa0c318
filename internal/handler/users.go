package handler

import (
	"net/http"
)

// CreateUser registers a new user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.CreateUser(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to create user")
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: user})
}

// GetUser returns a user by id
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err, "failed to get user", "user_id", userID)
		return
	}
	h.writeSuccess(w, user)
}

// LevelUp raises a user one level
func (h *Handler) LevelUp(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.LevelUp(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err, "failed to level up user", "user_id", userID)
		return
	}
	h.writeSuccess(w, user)
}
