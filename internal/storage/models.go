package storage

import (
	"time"

	"github.com/google/uuid"
)

type Presence struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Active         bool      `json:"active" db:"active"`
	Latitude       float64   `json:"latitude" db:"latitude"`
	Longitude      float64   `json:"longitude" db:"longitude"`
	RadiusKm       float64   `json:"radius_km" db:"radius_km"`
	WorkoutType    string    `json:"workout_type" db:"workout_type"`
	AvailableSince time.Time `json:"available_since" db:"available_since"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
}

type Ping struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FromUserID uuid.UUID  `json:"from_user_id" db:"from_user_id"`
	ToUserID   uuid.UUID  `json:"to_user_id" db:"to_user_id"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Participant reports whether userID is either side of the ping.
func (p Ping) Participant(userID uuid.UUID) bool {
	return p.FromUserID == userID || p.ToUserID == userID
}

type MatchEvent struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PingID     uuid.UUID `json:"ping_id" db:"ping_id"`
	FromUserID uuid.UUID `json:"from_user_id" db:"from_user_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type ChatMessage struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PingID     uuid.UUID  `json:"ping_id" db:"ping_id"`
	FromUserID uuid.UUID  `json:"from_user_id" db:"from_user_id"`
	Message    string     `json:"message" db:"message"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	SeenAt     *time.Time `json:"seen_at,omitempty" db:"seen_at"`
}

type Profile struct {
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName       string    `json:"display_name" db:"display_name"`
	WorkoutPreference string    `json:"workout_preference" db:"workout_preference"`
	Bio               string    `json:"bio" db:"bio"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// MatchUpdate is one frame on a match's pub/sub channel. ID is the inserted
// row's id; delivery is at-least-once, so subscribers fold frames idempotently
// by ID.
type MatchUpdate struct {
	Type    string       `json:"type"`
	ID      uuid.UUID    `json:"id"`
	PingID  uuid.UUID    `json:"ping_id"`
	Event   *MatchEvent  `json:"event,omitempty"`
	Message *ChatMessage `json:"message,omitempty"`
	SentAt  time.Time    `json:"sent_at"`
}

// Ping statuses
const (
	PingPending  = "pending"
	PingAccepted = "accepted"
	PingRejected = "rejected"
	PingEnded    = "ended"
)

// Match timeline event types
const (
	EventOnTheWay    = "on_the_way"
	EventRunningLate = "running_late"
	EventAtGym       = "at_gym"
	EventCantMakeIt  = "cant_make_it"
)

// Workout types
const (
	WorkoutStrength = "strength"
	WorkoutCardio   = "cardio"
	WorkoutMixed    = "mixed"
)

// Match update frame types
const (
	UpdateEvent      = "event"
	UpdateMessage    = "message"
	UpdateMatchEnded = "match_ended"
)

func ValidWorkoutType(t string) bool {
	return t == WorkoutStrength || t == WorkoutCardio || t == WorkoutMixed
}

func ValidEventType(t string) bool {
	return t == EventOnTheWay || t == EventRunningLate || t == EventAtGym || t == EventCantMakeIt
}

// EventAllowed decides whether a participant who has already sent the given
// event types may send next. on_the_way must come first, every type is sent at
// most once, and at_gym or cant_make_it closes the participant's timeline.
func EventAllowed(sent []string, next string) bool {
	var onTheWay, terminal bool
	for _, t := range sent {
		if t == next {
			return false
		}
		switch t {
		case EventOnTheWay:
			onTheWay = true
		case EventAtGym, EventCantMakeIt:
			terminal = true
		}
	}
	if terminal {
		return false
	}
	if next == EventOnTheWay {
		return len(sent) == 0
	}
	return onTheWay
}
