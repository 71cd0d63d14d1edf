package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"gymbuddy-backend/internal/storage"

	"github.com/google/uuid"
)

// PingService runs the match negotiation state machine:
// PENDING -> ACCEPTED -> ENDED, with REJECTED and ENDED terminal. All
// transitions are conditional updates in the store; a transition that lands
// after the state already moved reports StaleOrAlreadyHandled and the caller
// re-reads.
type PingService struct {
	store     PingStore
	presence  *PresenceService
	publisher Publisher
	now       func() time.Time
}

func NewPingService(store PingStore, presence *PresenceService, publisher Publisher) *PingService {
	return &PingService{store: store, presence: presence, publisher: publisher, now: time.Now}
}

type RespondAction string

const (
	RespondAccept RespondAction = "accept"
	RespondReject RespondAction = "reject"
)

// CreatePing opens a pending negotiation with another user. The caller must
// hold an active presence; the store guarantees at most one live ping per
// pair and refuses new pings while either party is in an accepted match.
func (s *PingService) CreatePing(ctx context.Context, caller, to uuid.UUID) (*storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	if to == uuid.Nil {
		return nil, newError(KindInvalidArgument, "to_user_id is required")
	}
	if caller == to {
		return nil, newError(KindSelfOperationNotAllowed, "cannot ping yourself")
	}

	active, err := s.presence.HasActivePresence(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, newError(KindPresenceRequired, "caller has no active presence")
	}

	ping, err := s.store.InsertPing(ctx, caller, to)
	if err != nil {
		return nil, storeError("insert ping", err)
	}
	log.Printf("[PING_CREATE] ping=%s from=%s to=%s", ping.ID, caller, to)
	return ping, nil
}

// Respond accepts or rejects a pending ping. Only the recipient may respond.
// Accepting is refused while either participant is already in an active
// match.
func (s *PingService) Respond(ctx context.Context, caller, pingID uuid.UUID, action RespondAction) (*storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	if action != RespondAccept && action != RespondReject {
		return nil, newError(KindInvalidArgument, "action must be accept or reject")
	}

	current, err := s.store.GetPing(ctx, pingID)
	if err != nil {
		return nil, storeError("get ping", err)
	}
	if current.ToUserID != caller {
		return nil, newError(KindUnauthorized, "only the recipient may respond")
	}

	var ping *storage.Ping
	if action == RespondAccept {
		ping, err = s.store.AcceptPing(ctx, pingID, caller, s.now().UTC())
	} else {
		ping, err = s.store.RejectPing(ctx, pingID, caller)
	}
	if err != nil {
		return nil, storeError("respond to ping", err)
	}
	log.Printf("[PING_RESPOND] ping=%s action=%s by=%s", pingID, action, caller)
	return ping, nil
}

// EndMatch transitions an accepted ping to ended. Either participant may
// call; a second end lands on zero rows and reports stale.
func (s *PingService) EndMatch(ctx context.Context, caller, pingID uuid.UUID) (*storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}

	current, err := s.store.GetPing(ctx, pingID)
	if err != nil {
		return nil, storeError("get ping", err)
	}
	if !current.Participant(caller) {
		return nil, newError(KindUnauthorized, "caller is not a participant")
	}

	ping, err := s.store.EndPing(ctx, pingID, caller, s.now().UTC())
	if err != nil {
		return nil, storeError("end match", err)
	}

	// Tell subscribers the match is over so they tear down their streams.
	if s.publisher != nil {
		update := storage.MatchUpdate{Type: storage.UpdateMatchEnded, ID: ping.ID, PingID: ping.ID}
		if err := s.publisher.PublishMatchUpdate(ctx, update); err != nil {
			log.Printf("[PING_END] ping=%s match_ended publish failed: %v", pingID, err)
		}
	}
	log.Printf("[PING_END] ping=%s by=%s", pingID, caller)
	return ping, nil
}

// ListIncomingPending returns pending pings addressed to the caller, newest
// first.
func (s *PingService) ListIncomingPending(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	pings, err := s.store.ListIncomingPending(ctx, caller)
	if err != nil {
		return nil, storeError("list incoming", err)
	}
	return pings, nil
}

// ListAcceptedForCaller returns the caller's active matches (at most one under
// the store's invariant, but surfaced as a list for reconciliation).
func (s *PingService) ListAcceptedForCaller(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	pings, err := s.store.ListAccepted(ctx, caller)
	if err != nil {
		return nil, storeError("list accepted", err)
	}
	return pings, nil
}

// ListEndedForCaller returns the caller's match history, most recently ended
// first.
func (s *PingService) ListEndedForCaller(ctx context.Context, caller uuid.UUID) ([]storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	pings, err := s.store.ListEnded(ctx, caller)
	if err != nil {
		return nil, storeError("list ended", err)
	}
	return pings, nil
}

// ListSentPending returns the recipients of the caller's outstanding pings,
// used client-side to suppress re-sending. The authoritative duplicate guard
// is the store's uniqueness check in CreatePing.
func (s *PingService) ListSentPending(ctx context.Context, caller uuid.UUID) ([]uuid.UUID, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	targets, err := s.store.ListSentPendingTargets(ctx, caller)
	if err != nil {
		return nil, storeError("list sent", err)
	}
	return targets, nil
}

// GetMatchWithUser returns the accepted ping between the caller and another
// user, or nil when none exists.
func (s *PingService) GetMatchWithUser(ctx context.Context, caller, other uuid.UUID) (*storage.Ping, error) {
	if caller == uuid.Nil {
		return nil, newError(KindAuthenticationRequired, "no caller identity")
	}
	ping, err := s.store.GetAcceptedBetween(ctx, caller, other)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get match with user", err)
	}
	return ping, nil
}

// GetPing returns the ping by id.
func (s *PingService) GetPing(ctx context.Context, pingID uuid.UUID) (*storage.Ping, error) {
	ping, err := s.store.GetPing(ctx, pingID)
	if err != nil {
		return nil, storeError("get ping", err)
	}
	return ping, nil
}
