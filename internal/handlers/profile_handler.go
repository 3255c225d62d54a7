package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
	"bibliobalance/internal/service"
)

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.Get(r.Context(), SessionFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update changes username and avatar. Omitted fields keep their values.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u models.ProfileUpdate
	if err := readJSON(w, r, &u); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	profile, err := h.profileService.Update(r.Context(), SessionFromContext(r.Context()).UserID, u)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Delete removes the account together with its books, stats and challenges.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if err := h.profileService.Delete(r.Context(), session.UserID); err != nil {
		respondServiceError(w, h.logger, "Failed to delete profile", err)
		return
	}
	h.logger.Info("Profile deleted", zap.String("user_id", session.UserID))
	w.WriteHeader(http.StatusNoContent)
}
