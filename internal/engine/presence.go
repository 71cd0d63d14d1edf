package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"gymbuddy-backend/internal/geo"
	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// DefaultPresenceTTL is how long a toggled-on availability stays discoverable
// without renewal.
const DefaultPresenceTTL = 30 * time.Minute

// PresenceService owns each user's time-bounded availability record.
type PresenceService struct {
	store PresenceStore
	ttl   time.Duration
	now   func() time.Time
}

func NewPresenceService(store PresenceStore, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceService{store: store, ttl: ttl, now: time.Now}
}

type SetPresenceRequest struct {
	Active      bool    `json:"active"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusKm    float64 `json:"radius_km"`
	WorkoutType string  `json:"workout_type"`
}

// SetPresence upserts the caller's availability row. Toggling on stamps a
// fresh TTL; toggling off expires the row immediately so it drops out of
// discovery without waiting for the sweep.
func (s *PresenceService) SetPresence(ctx context.Context, caller uuid.UUID, req SetPresenceRequest) (*storage.Presence, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	if req.RadiusKm <= 0 {
		return nil, newError(KindInvalidArgument, "radius_km must be positive")
	}
	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, newError(KindInvalidArgument, "latitude/longitude out of bounds")
	}
	if !storage.ValidWorkoutType(req.WorkoutType) {
		return nil, newError(KindInvalidArgument, "unknown workout_type")
	}

	now := s.now().UTC()
	expires := now
	if req.Active {
		expires = now.Add(s.ttl)
	}

	p := &storage.Presence{
		UserID:         caller,
		Active:         req.Active,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		RadiusKm:       req.RadiusKm,
		WorkoutType:    req.WorkoutType,
		AvailableSince: now,
		ExpiresAt:      expires,
	}
	if err := s.store.UpsertPresence(ctx, p); err != nil {
		return nil, storeError("upsert presence", err)
	}

	log.Printf("[PRESENCE_SET] user=%s active=%v expires=%s", caller, req.Active, expires.Format(time.RFC3339))
	return p, nil
}

// GetOwnPresence returns the caller's availability, or nil once it has
// expired or been toggled off. Pure read; expiry is a predicate, never a
// write.
func (s *PresenceService) GetOwnPresence(ctx context.Context, caller uuid.UUID) (*storage.Presence, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	p, err := s.store.GetActivePresence(ctx, caller, s.now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get presence", err)
	}
	return p, nil
}

// SweepExpired flips lapsed rows to inactive. Invoked by the periodic sweep
// task; deliberately not part of any read path.
func (s *PresenceService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.store.SweepExpiredPresences(ctx, s.now().UTC())
	if err != nil {
		return 0, storeError("sweep presences", err)
	}
	if count > 0 {
		log.Printf("[PRESENCE_SWEEP] flipped %d expired rows", count)
	}
	return count, nil
}

// HasActivePresence reports whether the caller currently passes the
// active-and-unexpired test.
func (s *PresenceService) HasActivePresence(ctx context.Context, caller uuid.UUID) (bool, error) {
	p, err := s.GetOwnPresence(ctx, caller)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}
