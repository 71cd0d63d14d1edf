package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Retryable reports whether err is a transient store conflict (serialization
// failure) that the caller may retry.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}

const pingColumns = `id, from_user_id, to_user_id, status, created_at, accepted_at, ended_at`

func scanPing(row pgx.Row) (*Ping, error) {
	p := &Ping{}
	err := row.Scan(&p.ID, &p.FromUserID, &p.ToUserID, &p.Status, &p.CreatedAt, &p.AcceptedAt, &p.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// InsertPing creates a pending ping from -> to. The live-pair unique index
// makes the duplicate check atomic with the insert; the active-match guard
// runs in the same serializable transaction so two racing inserts cannot both
// slip past it.
func (db *PostgresDB) InsertPing(ctx context.Context, from, to uuid.UUID) (*Ping, error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var busy bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pings
			WHERE status = 'accepted'
			  AND (from_user_id = ANY($1) OR to_user_id = ANY($1))
		)`, []uuid.UUID{from, to}).Scan(&busy)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrActiveMatch
	}

	p, err := scanPing(tx.QueryRow(ctx, `
		INSERT INTO pings (from_user_id, to_user_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING `+pingColumns, from, to))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePair
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePair
		}
		return nil, err
	}
	return p, nil
}

func (db *PostgresDB) GetPing(ctx context.Context, id uuid.UUID) (*Ping, error) {
	return scanPing(db.pool.QueryRow(ctx,
		`SELECT `+pingColumns+` FROM pings WHERE id = $1`, id))
}

// AcceptPing transitions pending -> accepted, conditional on the row still
// being pending and addressed to caller. Zero rows affected is ErrStale. The
// one-active-match invariant is checked inside the same serializable
// transaction.
func (db *PostgresDB) AcceptPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*Ping, error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanPing(tx.QueryRow(ctx,
		`SELECT `+pingColumns+` FROM pings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	var busy bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pings
			WHERE status = 'accepted' AND id <> $1
			  AND (from_user_id = ANY($2) OR to_user_id = ANY($2))
		)`, id, []uuid.UUID{current.FromUserID, current.ToUserID}).Scan(&busy)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrActiveMatch
	}

	p, err := scanPing(tx.QueryRow(ctx, `
		UPDATE pings SET status = 'accepted', accepted_at = $3
		WHERE id = $1 AND to_user_id = $2 AND status = 'pending'
		RETURNING `+pingColumns, id, caller, now))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// RejectPing transitions pending -> rejected for the addressed recipient.
func (db *PostgresDB) RejectPing(ctx context.Context, id, caller uuid.UUID) (*Ping, error) {
	p, err := scanPing(db.pool.QueryRow(ctx, `
		UPDATE pings SET status = 'rejected'
		WHERE id = $1 AND to_user_id = $2 AND status = 'pending'
		RETURNING `+pingColumns, id, caller))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return p, err
}

// EndPing transitions accepted -> ended for either participant.
func (db *PostgresDB) EndPing(ctx context.Context, id, caller uuid.UUID, now time.Time) (*Ping, error) {
	p, err := scanPing(db.pool.QueryRow(ctx, `
		UPDATE pings SET status = 'ended', ended_at = $3
		WHERE id = $1 AND status = 'accepted'
		  AND (from_user_id = $2 OR to_user_id = $2)
		RETURNING `+pingColumns, id, caller, now))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStale
	}
	return p, err
}

func (db *PostgresDB) listPings(ctx context.Context, query string, args ...any) ([]Ping, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pings []Ping
	for rows.Next() {
		var p Ping
		if err := rows.Scan(&p.ID, &p.FromUserID, &p.ToUserID, &p.Status,
			&p.CreatedAt, &p.AcceptedAt, &p.EndedAt); err != nil {
			return nil, err
		}
		pings = append(pings, p)
	}
	return pings, rows.Err()
}

// ListIncomingPending returns pending pings addressed to caller, newest first.
func (db *PostgresDB) ListIncomingPending(ctx context.Context, caller uuid.UUID) ([]Ping, error) {
	return db.listPings(ctx, `
		SELECT `+pingColumns+` FROM pings
		WHERE to_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, caller)
}

// ListAccepted returns accepted pings where caller is either participant.
func (db *PostgresDB) ListAccepted(ctx context.Context, caller uuid.UUID) ([]Ping, error) {
	return db.listPings(ctx, `
		SELECT `+pingColumns+` FROM pings
		WHERE status = 'accepted' AND (from_user_id = $1 OR to_user_id = $1)
		ORDER BY accepted_at DESC`, caller)
}

// ListEnded returns ended pings where caller was a participant, most recently
// ended first.
func (db *PostgresDB) ListEnded(ctx context.Context, caller uuid.UUID) ([]Ping, error) {
	return db.listPings(ctx, `
		SELECT `+pingColumns+` FROM pings
		WHERE status = 'ended' AND (from_user_id = $1 OR to_user_id = $1)
		ORDER BY ended_at DESC`, caller)
}

// ListSentPendingTargets returns the recipients of caller's outstanding
// pending pings.
func (db *PostgresDB) ListSentPendingTargets(ctx context.Context, caller uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT to_user_id FROM pings
		WHERE from_user_id = $1 AND status = 'pending'`, caller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// GetAcceptedBetween returns the accepted ping between the two users in
// either direction, if one exists.
func (db *PostgresDB) GetAcceptedBetween(ctx context.Context, a, b uuid.UUID) (*Ping, error) {
	return scanPing(db.pool.QueryRow(ctx, `
		SELECT `+pingColumns+` FROM pings
		WHERE status = 'accepted'
		  AND LEAST(from_user_id, to_user_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(from_user_id, to_user_id) = GREATEST($1::uuid, $2::uuid)`, a, b))
}
