package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// TimelineService owns the append-only event and message streams attached to
// an active match. Writes are conditional on the ping still being accepted;
// committed inserts are fanned out on the ping's pub/sub channel.
type TimelineService struct {
	store     TimelineStore
	pings     PingStore
	publisher Publisher
	now       func() time.Time
}

func NewTimelineService(store TimelineStore, pings PingStore, publisher Publisher) *TimelineService {
	return &TimelineService{store: store, pings: pings, publisher: publisher, now: time.Now}
}

// requireParticipant loads the ping and checks the caller is one of its two
// sides. Status checks stay in the store's conditional writes.
func (s *TimelineService) requireParticipant(ctx context.Context, caller, pingID uuid.UUID) (*storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	ping, err := s.pings.GetPing(ctx, pingID)
	if err != nil {
		return nil, storeError("get ping", err)
	}
	if !ping.Participant(caller) {
		return nil, newError(KindUnauthorized, "caller is not a participant")
	}
	return ping, nil
}

// AppendEvent adds a status event to the match timeline. The store enforces
// the per-participant progression atomically; out-of-order or repeated events
// report InvalidTransition.
func (s *TimelineService) AppendEvent(ctx context.Context, caller, pingID uuid.UUID, eventType string) (*storage.MatchEvent, error) {
	if !storage.ValidEventType(eventType) {
		return nil, newError(KindInvalidArgument, "unknown event_type")
	}
	if _, err := s.requireParticipant(ctx, caller, pingID); err != nil {
		return nil, err
	}

	event, err := s.store.InsertMatchEvent(ctx, pingID, caller, eventType)
	if err != nil {
		return nil, storeError("insert match event", err)
	}

	s.publish(ctx, storage.MatchUpdate{
		Type:   storage.UpdateEvent,
		ID:     event.ID,
		PingID: pingID,
		Event:  event,
	})
	log.Printf("[TIMELINE_EVENT] ping=%s from=%s type=%s", pingID, caller, eventType)
	return event, nil
}

// ListEvents returns the match timeline, oldest first.
func (s *TimelineService) ListEvents(ctx context.Context, pingID uuid.UUID) ([]storage.MatchEvent, error) {
	events, err := s.store.ListMatchEvents(ctx, pingID)
	if err != nil {
		return nil, storeError("list match events", err)
	}
	return events, nil
}

// SendMessage appends a chat message to an active match.
func (s *TimelineService) SendMessage(ctx context.Context, caller, pingID uuid.UUID, text string) (*storage.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newError(KindInvalidArgument, "message must not be empty")
	}
	if _, err := s.requireParticipant(ctx, caller, pingID); err != nil {
		return nil, err
	}

	msg, err := s.store.InsertChatMessage(ctx, pingID, caller, text)
	if err != nil {
		return nil, storeError("insert chat message", err)
	}

	s.publish(ctx, storage.MatchUpdate{
		Type:    storage.UpdateMessage,
		ID:      msg.ID,
		PingID:  pingID,
		Message: msg,
	})
	return msg, nil
}

// ListMessages returns the chat log, oldest first.
func (s *TimelineService) ListMessages(ctx context.Context, pingID uuid.UUID) ([]storage.ChatMessage, error) {
	messages, err := s.store.ListChatMessages(ctx, pingID)
	if err != nil {
		return nil, storeError("list chat messages", err)
	}
	return messages, nil
}

// MarkSeen stamps every message in the match not authored by the caller that
// has no seen_at yet. Idempotent; a second call is a no-op.
func (s *TimelineService) MarkSeen(ctx context.Context, caller, pingID uuid.UUID) (int64, error) {
	if _, err := s.requireParticipant(ctx, caller, pingID); err != nil {
		return 0, err
	}
	count, err := s.store.MarkMessagesSeen(ctx, pingID, caller, s.now().UTC())
	if err != nil {
		return 0, storeError("mark messages seen", err)
	}
	return count, nil
}

// publish fans an update out best-effort. Subscribers that miss a frame
// reconcile from the list endpoints on reload, so a publish failure is logged
// rather than failing the committed write.
func (s *TimelineService) publish(ctx context.Context, update storage.MatchUpdate) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMatchUpdate(ctx, update); err != nil {
		log.Printf("[TIMELINE_PUBLISH] ping=%s type=%s publish failed: %v", update.PingID, update.Type, err)
	}
}
