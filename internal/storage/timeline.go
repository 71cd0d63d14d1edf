package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertMatchEvent appends a timeline event. The transaction locks the ping
// row, re-checks that the match is still accepted, and applies the
// per-participant progression against the events already on record, so two
// racing sends cannot both pass the check.
func (db *PostgresDB) InsertMatchEvent(ctx context.Context, pingID, from uuid.UUID, eventType string) (*MatchEvent, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM pings WHERE id = $1 FOR UPDATE`, pingID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != PingAccepted {
		return nil, ErrStale
	}

	rows, err := tx.Query(ctx, `
		SELECT event_type FROM match_events
		WHERE ping_id = $1 AND from_user_id = $2`, pingID, from)
	if err != nil {
		return nil, err
	}
	var sent []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return nil, err
		}
		sent = append(sent, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !EventAllowed(sent, eventType) {
		return nil, ErrEventOrder
	}

	event := &MatchEvent{}
	err = tx.QueryRow(ctx, `
		INSERT INTO match_events (ping_id, from_user_id, event_type)
		VALUES ($1, $2, $3)
		RETURNING id, ping_id, from_user_id, event_type, created_at`,
		pingID, from, eventType).Scan(
		&event.ID, &event.PingID, &event.FromUserID, &event.EventType, &event.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEventOrder
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return event, nil
}

// ListMatchEvents returns the timeline for a ping, oldest first.
func (db *PostgresDB) ListMatchEvents(ctx context.Context, pingID uuid.UUID) ([]MatchEvent, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, ping_id, from_user_id, event_type, created_at
		FROM match_events
		WHERE ping_id = $1
		ORDER BY created_at ASC`, pingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []MatchEvent
	for rows.Next() {
		var e MatchEvent
		if err := rows.Scan(&e.ID, &e.PingID, &e.FromUserID, &e.EventType, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertChatMessage appends a chat message, conditional on the ping still
// being accepted (the chat log is scoped to an active match).
func (db *PostgresDB) InsertChatMessage(ctx context.Context, pingID, from uuid.UUID, message string) (*ChatMessage, error) {
	msg := &ChatMessage{}
	err := db.pool.QueryRow(ctx, `
		INSERT INTO match_messages (ping_id, from_user_id, message)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM pings WHERE id = $1 AND status = 'accepted')
		RETURNING id, ping_id, from_user_id, message, created_at, seen_at`,
		pingID, from, message).Scan(
		&msg.ID, &msg.PingID, &msg.FromUserID, &msg.Message, &msg.CreatedAt, &msg.SeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListChatMessages returns the chat log for a ping, oldest first.
func (db *PostgresDB) ListChatMessages(ctx context.Context, pingID uuid.UUID) ([]ChatMessage, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, ping_id, from_user_id, message, created_at, seen_at
		FROM match_messages
		WHERE ping_id = $1
		ORDER BY created_at ASC`, pingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.PingID, &m.FromUserID, &m.Message, &m.CreatedAt, &m.SeenAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkMessagesSeen stamps every unseen message in the ping not authored by
// reader. Idempotent: already-seen messages keep their original seen_at.
func (db *PostgresDB) MarkMessagesSeen(ctx context.Context, pingID, reader uuid.UUID, now time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `
		UPDATE match_messages SET seen_at = $3
		WHERE ping_id = $1 AND from_user_id <> $2 AND seen_at IS NULL`,
		pingID, reader, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
