package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// fakeClock is a settable clock injected into the services' now fields.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *memStore
	publisher *memPublisher
	clock     *fakeClock
	presence  *PresenceService
	discovery *DiscoveryService
	pings     *PingService
	timeline  *TimelineService
	profiles  *ProfileService
}

func newFixture() *fixture {
	store := newMemStore()
	publisher := &memPublisher{}
	clock := newFakeClock()

	presence := NewPresenceService(store, DefaultPresenceTTL)
	presence.now = clock.Now
	discovery := NewDiscoveryService(store)
	discovery.now = clock.Now
	pings := NewPingService(store, presence, publisher)
	pings.now = clock.Now
	timeline := NewTimelineService(store, store, publisher)
	timeline.now = clock.Now
	profiles := NewProfileService(store)

	return &fixture{
		store:     store,
		publisher: publisher,
		clock:     clock,
		presence:  presence,
		discovery: discovery,
		pings:     pings,
		timeline:  timeline,
		profiles:  profiles,
	}
}

// goOnline gives the user an active presence at the given spot.
func (f *fixture) goOnline(t *testing.T, user uuid.UUID, lat, lng, radiusKm float64) {
	t.Helper()
	_, err := f.presence.SetPresence(context.Background(), user, SetPresenceRequest{
		Active:      true,
		Latitude:    lat,
		Longitude:   lng,
		RadiusKm:    radiusKm,
		WorkoutType: storage.WorkoutMixed,
	})
	if err != nil {
		t.Fatalf("SetPresence(%s): %v", user, err)
	}
}

// acceptedMatch creates and accepts a ping between two users and returns it.
func (f *fixture) acceptedMatch(t *testing.T, from, to uuid.UUID) *storage.Ping {
	t.Helper()
	f.goOnline(t, from, 0, 0, 5)

	ping, err := f.pings.CreatePing(context.Background(), from, to)
	if err != nil {
		t.Fatalf("CreatePing(%s -> %s): %v", from, to, err)
	}
	accepted, err := f.pings.Respond(context.Background(), to, ping.ID, RespondAccept)
	if err != nil {
		t.Fatalf("Respond(accept): %v", err)
	}
	return accepted
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil error, want kind %s", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("got error kind %s (%v), want %s", got, err, kind)
	}
}
