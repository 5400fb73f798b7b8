package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
)

// MeHandler exposes the authenticated user's profile
type MeHandler struct {
	users  database.UserRepositoryInterface
	logger *zap.Logger
}

// NewMeHandler creates a new profile handler
func NewMeHandler(users database.UserRepositoryInterface, logger *zap.Logger) *MeHandler {
	return &MeHandler{users: users, logger: logger}
}

// UpdateMeRequest is the body of PATCH /me
type UpdateMeRequest struct {
	TimeZone string `json:"time_zone" validate:"required,timezone"`
}

// GetMe returns the authenticated user
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe changes the user's time zone
func (h *MeHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.users.UpdateTimeZone(r.Context(), user.ID, req.TimeZone)
	if errors.Is(err, database.ErrUserNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_update_time_zone", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
		return
	}

	updated := *user
	updated.TimeZone = req.TimeZone
	respondJSON(w, http.StatusOK, updated)
}
