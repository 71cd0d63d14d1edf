package engine

import (
	"context"
	"testing"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

func TestSetPresenceStampsTTL(t *testing.T) {
	t.Parallel()
	f := newFixture()
	user := uuid.New()

	p, err := f.presence.SetPresence(context.Background(), user, SetPresenceRequest{
		Active:      true,
		Latitude:    40.7,
		Longitude:   -74.0,
		RadiusKm:    5,
		WorkoutType: storage.WorkoutStrength,
	})
	if err != nil {
		t.Fatalf("SetPresence: %v", err)
	}

	wantExpiry := f.clock.Now().UTC().Add(DefaultPresenceTTL)
	if !p.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, wantExpiry)
	}

	got, err := f.presence.GetOwnPresence(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOwnPresence: %v", err)
	}
	if got == nil {
		t.Fatal("GetOwnPresence = nil, want active presence")
	}
	if got.WorkoutType != storage.WorkoutStrength {
		t.Errorf("WorkoutType = %q, want %q", got.WorkoutType, storage.WorkoutStrength)
	}
}

func TestSetPresenceToggleOffHidesImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture()
	user := uuid.New()
	f.goOnline(t, user, 40.7, -74.0, 5)

	_, err := f.presence.SetPresence(context.Background(), user, SetPresenceRequest{
		Active:      false,
		Latitude:    40.7,
		Longitude:   -74.0,
		RadiusKm:    5,
		WorkoutType: storage.WorkoutMixed,
	})
	if err != nil {
		t.Fatalf("SetPresence(off): %v", err)
	}

	got, err := f.presence.GetOwnPresence(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOwnPresence: %v", err)
	}
	if got != nil {
		t.Errorf("GetOwnPresence = %+v, want nil after toggle off", got)
	}
}

func TestGetOwnPresenceAfterExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture()
	user := uuid.New()
	f.goOnline(t, user, 40.7, -74.0, 5)

	f.clock.Advance(DefaultPresenceTTL + time.Second)

	got, err := f.presence.GetOwnPresence(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOwnPresence: %v", err)
	}
	if got != nil {
		t.Errorf("GetOwnPresence = %+v, want nil after TTL elapsed", got)
	}
}

func TestSetPresenceRenewalExtendsTTL(t *testing.T) {
	t.Parallel()
	f := newFixture()
	user := uuid.New()
	f.goOnline(t, user, 40.7, -74.0, 5)

	f.clock.Advance(29 * time.Minute)
	f.goOnline(t, user, 40.7, -74.0, 5)
	f.clock.Advance(29 * time.Minute)

	got, err := f.presence.GetOwnPresence(context.Background(), user)
	if err != nil {
		t.Fatalf("GetOwnPresence: %v", err)
	}
	if got == nil {
		t.Fatal("GetOwnPresence = nil, want renewed presence still active")
	}
}

func TestSetPresenceValidation(t *testing.T) {
	t.Parallel()
	f := newFixture()
	user := uuid.New()

	tests := []struct {
		name string
		who  uuid.UUID
		req  SetPresenceRequest
		kind Kind
	}{
		{
			name: "no caller",
			who:  uuid.Nil,
			req:  SetPresenceRequest{Active: true, RadiusKm: 5, WorkoutType: storage.WorkoutMixed},
			kind: KindAuthenticationRequired,
		},
		{
			name: "zero radius",
			who:  user,
			req:  SetPresenceRequest{Active: true, RadiusKm: 0, WorkoutType: storage.WorkoutMixed},
			kind: KindInvalidArgument,
		},
		{
			name: "negative radius",
			who:  user,
			req:  SetPresenceRequest{Active: true, RadiusKm: -1, WorkoutType: storage.WorkoutMixed},
			kind: KindInvalidArgument,
		},
		{
			name: "latitude out of range",
			who:  user,
			req:  SetPresenceRequest{Active: true, Latitude: 91, RadiusKm: 5, WorkoutType: storage.WorkoutMixed},
			kind: KindInvalidArgument,
		},
		{
			name: "longitude out of range",
			who:  user,
			req:  SetPresenceRequest{Active: true, Longitude: -181, RadiusKm: 5, WorkoutType: storage.WorkoutMixed},
			kind: KindInvalidArgument,
		},
		{
			name: "unknown workout type",
			who:  user,
			req:  SetPresenceRequest{Active: true, RadiusKm: 5, WorkoutType: "yoga"},
			kind: KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.presence.SetPresence(context.Background(), tt.who, tt.req)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestSweepExpiredFlipsOnlyLapsedRows(t *testing.T) {
	t.Parallel()
	f := newFixture()
	stale := uuid.New()
	fresh := uuid.New()

	f.goOnline(t, stale, 40.7, -74.0, 5)
	f.clock.Advance(DefaultPresenceTTL + time.Minute)
	f.goOnline(t, fresh, 40.7, -74.0, 5)

	count, err := f.presence.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("SweepExpired count = %d, want 1", count)
	}

	// A second sweep finds nothing left to flip.
	count, err = f.presence.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if count != 0 {
		t.Errorf("second SweepExpired count = %d, want 0", count)
	}

	got, err := f.presence.GetOwnPresence(context.Background(), fresh)
	if err != nil {
		t.Fatalf("GetOwnPresence: %v", err)
	}
	if got == nil {
		t.Error("fresh presence was swept, want it untouched")
	}
}
