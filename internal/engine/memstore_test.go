package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres store. It honors the
// same contracts the real store provides: upsert keyed by user, atomic
// check-and-insert for pings, conditional state transitions that report
// storage.ErrStale on zero rows, and the timeline progression check under a
// single lock.
type memStore struct {
	mu        sync.Mutex
	presences map[uuid.UUID]storage.Presence
	pings     map[uuid.UUID]*storage.Ping
	events    []storage.MatchEvent
	messages  []*storage.ChatMessage
	profiles  map[uuid.UUID]storage.Profile
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		presences: make(map[uuid.UUID]storage.Presence),
		pings:     make(map[uuid.UUID]*storage.Ping),
		profiles:  make(map[uuid.UUID]storage.Profile),
	}
}

func (m *memStore) nextTime(base time.Time) time.Time {
	m.seq++
	return base.Add(time.Duration(m.seq) * time.Millisecond)
}

// PresenceStore

func (m *memStore) UpsertPresence(ctx context.Context, p *storage.Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presences[p.UserID] = *p
	return nil
}

func (m *memStore) GetActivePresence(ctx context.Context, userID uuid.UUID, now time.Time) (*storage.Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presences[userID]
	if !ok || !p.Active || !p.ExpiresAt.After(now) {
		return nil, storage.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (m *memStore) ListActivePresences(ctx context.Context, exclude uuid.UUID, now time.Time) ([]storage.Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Presence
	for _, p := range m.presences {
		if p.UserID == exclude || !p.Active || !p.ExpiresAt.After(now) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) SweepExpiredPresences(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, p := range m.presences {
		if p.Active && !p.ExpiresAt.After(now) {
			p.Active = false
			m.presences[id] = p
			count++
		}
	}
	return count, nil
}

// PingStore

func (m *memStore) livePairExists(a, b uuid.UUID) bool {
	for _, p := range m.pings {
		if p.Status != storage.PingPending && p.Status != storage.PingAccepted {
			continue
		}
		if (p.FromUserID == a && p.ToUserID == b) || (p.FromUserID == b && p.ToUserID == a) {
			return true
		}
	}
	return false
}

func (m *memStore) inActiveMatch(users []uuid.UUID, excludePing uuid.UUID) bool {
	for _, p := range m.pings {
		if p.Status != storage.PingAccepted || p.ID == excludePing {
			continue
		}
		for _, u := range users {
			if p.FromUserID == u || p.ToUserID == u {
				return true
			}
		}
	}
	return false
}

func (m *memStore) InsertPing(ctx context.Context, from, to uuid.UUID) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inActiveMatch([]uuid.UUID{from, to}, uuid.Nil) {
		return nil, storage.ErrActiveMatch
	}
	if m.livePairExists(from, to) {
		return nil, storage.ErrDuplicatePair
	}
	p := &storage.Ping{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Status:     storage.PingPending,
		CreatedAt:  m.nextTime(time.Now().UTC()),
	}
	m.pings[p.ID] = p
	copied := *p
	return &copied, nil
}

func (m *memStore) GetPing(ctx context.Context, id uuid.UUID) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) AcceptPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if m.inActiveMatch([]uuid.UUID{p.FromUserID, p.ToUserID}, id) {
		return nil, storage.ErrActiveMatch
	}
	if p.Status != storage.PingPending || p.ToUserID != caller {
		return nil, storage.ErrStale
	}
	p.Status = storage.PingAccepted
	accepted := now
	p.AcceptedAt = &accepted
	copied := *p
	return &copied, nil
}

func (m *memStore) RejectPing(ctx context.Context, id, caller uuid.UUID) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[id]
	if !ok || p.Status != storage.PingPending || p.ToUserID != caller {
		return nil, storage.ErrStale
	}
	p.Status = storage.PingRejected
	copied := *p
	return &copied, nil
}

func (m *memStore) EndPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[id]
	if !ok || p.Status != storage.PingAccepted || (p.FromUserID != caller && p.ToUserID != caller) {
		return nil, storage.ErrStale
	}
	p.Status = storage.PingEnded
	ended := now
	p.EndedAt = &ended
	copied := *p
	return &copied, nil
}

func (m *memStore) listPings(match func(*storage.Ping) bool) []storage.Ping {
	var out []storage.Ping
	for _, p := range m.pings {
		if match(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (m *memStore) ListIncomingPending(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.listPings(func(p *storage.Ping) bool {
		return p.ToUserID == caller && p.Status == storage.PingPending
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListAccepted(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPings(func(p *storage.Ping) bool {
		return p.Status == storage.PingAccepted && (p.FromUserID == caller || p.ToUserID == caller)
	}), nil
}

func (m *memStore) ListEnded(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.listPings(func(p *storage.Ping) bool {
		return p.Status == storage.PingEnded && (p.FromUserID == caller || p.ToUserID == caller)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(*out[j].EndedAt) })
	return out, nil
}

func (m *memStore) ListSentPendingTargets(ctx context.Context, caller uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, p := range m.pings {
		if p.FromUserID == caller && p.Status == storage.PingPending {
			out = append(out, p.ToUserID)
		}
	}
	return out, nil
}

func (m *memStore) GetAcceptedBetween(ctx context.Context, a, b uuid.UUID) (*storage.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pings {
		if p.Status != storage.PingAccepted {
			continue
		}
		if (p.FromUserID == a && p.ToUserID == b) || (p.FromUserID == b && p.ToUserID == a) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

// TimelineStore

func (m *memStore) InsertMatchEvent(ctx context.Context, pingID, from uuid.UUID, eventType string) (*storage.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[pingID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if p.Status != storage.PingAccepted {
		return nil, storage.ErrStale
	}
	var sent []string
	for _, e := range m.events {
		if e.PingID == pingID && e.FromUserID == from {
			sent = append(sent, e.EventType)
		}
	}
	if !storage.EventAllowed(sent, eventType) {
		return nil, storage.ErrEventOrder
	}
	event := storage.MatchEvent{
		ID:         uuid.New(),
		PingID:     pingID,
		FromUserID: from,
		EventType:  eventType,
		CreatedAt:  m.nextTime(time.Now().UTC()),
	}
	m.events = append(m.events, event)
	return &event, nil
}

func (m *memStore) ListMatchEvents(ctx context.Context, pingID uuid.UUID) ([]storage.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.MatchEvent
	for _, e := range m.events {
		if e.PingID == pingID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) InsertChatMessage(ctx context.Context, pingID, from uuid.UUID, message string) (*storage.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pings[pingID]
	if !ok || p.Status != storage.PingAccepted {
		return nil, storage.ErrStale
	}
	msg := &storage.ChatMessage{
		ID:         uuid.New(),
		PingID:     pingID,
		FromUserID: from,
		Message:    message,
		CreatedAt:  m.nextTime(time.Now().UTC()),
	}
	m.messages = append(m.messages, msg)
	copied := *msg
	return &copied, nil
}

func (m *memStore) ListChatMessages(ctx context.Context, pingID uuid.UUID) ([]storage.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ChatMessage
	for _, msg := range m.messages {
		if msg.PingID == pingID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) MarkMessagesSeen(ctx context.Context, pingID, reader uuid.UUID, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if msg.PingID == pingID && msg.FromUserID != reader && msg.SeenAt == nil {
			seen := now
			msg.SeenAt = &seen
			count++
		}
	}
	return count, nil
}

// ProfileStore

func (m *memStore) GetProfile(ctx context.Context, userID uuid.UUID) (*storage.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (m *memStore) UpsertProfile(ctx context.Context, p *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = *p
	return nil
}

// memPublisher records published updates for assertions.
type memPublisher struct {
	mu      sync.Mutex
	updates []storage.MatchUpdate
}

func (m *memPublisher) PublishMatchUpdate(ctx context.Context, update storage.MatchUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return nil
}

func (m *memPublisher) published() []storage.MatchUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.MatchUpdate(nil), m.updates...)
}
