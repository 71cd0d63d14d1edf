package engine

import (
	"context"
	"strings"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// ProfileService holds the display profiles clients render next to presence
// and match records.
type ProfileService struct {
	store ProfileStore
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

type UpsertProfileRequest struct {
	DisplayName       string `json:"display_name"`
	WorkoutPreference string `json:"workout_preference"`
	Bio               string `json:"bio"`
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*storage.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeError("get profile", err)
	}
	return profile, nil
}

// UpsertOwnProfile creates or updates the caller's profile.
func (s *ProfileService) UpsertOwnProfile(ctx context.Context, caller uuid.UUID, req UpsertProfileRequest) (*storage.Profile, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		return nil, newError(KindInvalidArgument, "display_name must not be empty")
	}
	if req.WorkoutPreference == "" {
		req.WorkoutPreference = storage.WorkoutMixed
	}
	if !storage.ValidWorkoutType(req.WorkoutPreference) {
		return nil, newError(KindInvalidArgument, "unknown workout_preference")
	}

	profile := &storage.Profile{
		UserID:            caller,
		DisplayName:       req.DisplayName,
		WorkoutPreference: req.WorkoutPreference,
		Bio:               strings.TrimSpace(req.Bio),
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, storeError("upsert profile", err)
	}
	return profile, nil
}
