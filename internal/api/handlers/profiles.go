package handlers

import (
	"net/http"

	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/engine"
)

type ProfileHandler struct {
	profiles *engine.ProfileService
}

func NewProfileHandler(profiles *engine.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile handles GET /profiles/{userID}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpsertOwnProfile handles PUT /profile.
func (h *ProfileHandler) UpsertOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	var req engine.UpsertProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.profiles.UpsertOwnProfile(r.Context(), caller, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
