package engine

import (
	"context"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// Store interfaces over the backing transactional store. The Postgres
// implementations live in internal/storage; tests substitute in-memory fakes
// that honor the same conditional-update contracts.

type PresenceStore interface {
	UpsertPresence(ctx context.Context, p *storage.Presence) error
	GetActivePresence(ctx context.Context, userID uuid.UUID, now time.Time) (*storage.Presence, error)
	ListActivePresences(ctx context.Context, exclude uuid.UUID, now time.Time) ([]storage.Presence, error)
	SweepExpiredPresences(ctx context.Context, now time.Time) (int64, error)
}

type PingStore interface {
	InsertPing(ctx context.Context, from, to uuid.UUID) (*storage.Ping, error)
	GetPing(ctx context.Context, id uuid.UUID) (*storage.Ping, error)
	AcceptPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*storage.Ping, error)
	RejectPing(ctx context.Context, id, caller uuid.UUID) (*storage.Ping, error)
	EndPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*storage.Ping, error)
	ListIncomingPending(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error)
	ListAccepted(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error)
	ListEnded(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error)
	ListSentPendingTargets(ctx context.Context, caller uuid.UUID) ([]uuid.UUID, error)
	GetAcceptedBetween(ctx context.Context, a, b uuid.UUID) (*storage.Ping, error)
}

type TimelineStore interface {
	InsertMatchEvent(ctx context.Context, pingID, from uuid.UUID, eventType string) (*storage.MatchEvent, error)
	ListMatchEvents(ctx context.Context, pingID uuid.UUID) ([]storage.MatchEvent, error)
	InsertChatMessage(ctx context.Context, pingID, from uuid.UUID, message string) (*storage.ChatMessage, error)
	ListChatMessages(ctx context.Context, pingID uuid.UUID) ([]storage.ChatMessage, error)
	MarkMessagesSeen(ctx context.Context, pingID, reader uuid.UUID, now time.Time) (int64, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*storage.Profile, error)
	UpsertProfile(ctx context.Context, p *storage.Profile) error
}

// Publisher fans committed timeline/chat updates out to match subscribers.
type Publisher interface {
	PublishMatchUpdate(ctx context.Context, update storage.MatchUpdate) error
}
