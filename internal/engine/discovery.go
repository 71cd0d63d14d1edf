package engine

import (
	"context"
	"sort"
	"time"

	"gymbuddy-backend/internal/geo"

	"github.com/google/uuid"
)

// DiscoveryService surfaces currently-available users within mutual range.
type DiscoveryService struct {
	store PresenceStore
	now   func() time.Time
}

func NewDiscoveryService(store PresenceStore) *DiscoveryService {
	return &DiscoveryService{store: store, now: time.Now}
}

type NearbyUser struct {
	UserID      uuid.UUID `json:"user_id"`
	DistanceKm  float64   `json:"distance_km"`
	RadiusKm    float64   `json:"radius_km"`
	WorkoutType string    `json:"workout_type"`
}

// FindNearby returns active unexpired candidates within mutual range of the
// caller, closest first. A candidate is included only if the distance fits
// BOTH radii: each party must be willing to travel far enough. The result is
// computed fresh on every call.
func (s *DiscoveryService) FindNearby(ctx context.Context, caller uuid.UUID, lat, lng, radiusKm float64) ([]NearbyUser, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	if radiusKm <= 0 {
		return nil, newError(KindInvalidArgument, "radius_km must be positive")
	}
	if !geo.ValidCoordinates(lat, lng) {
		return nil, newError(KindInvalidArgument, "latitude/longitude out of bounds")
	}

	candidates, err := s.store.ListActivePresences(ctx, caller, s.now().UTC())
	if err != nil {
		return nil, storeError("list presences", err)
	}

	nearby := make([]NearbyUser, 0, len(candidates))
	for _, c := range candidates {
		distance := geo.RoundKm(geo.DistanceKm(lat, lng, c.Latitude, c.Longitude))
		mutual := min(radiusKm, c.RadiusKm)
		if distance > mutual {
			continue
		}
		nearby = append(nearby, NearbyUser{
			UserID:      c.UserID,
			DistanceKm:  distance,
			RadiusKm:    c.RadiusKm,
			WorkoutType: c.WorkoutType,
		})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceKm != nearby[j].DistanceKm {
			return nearby[i].DistanceKm < nearby[j].DistanceKm
		}
		return nearby[i].UserID.String() < nearby[j].UserID.String()
	})
	return nearby, nil
}
