package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertPresence overwrites the caller's availability row (one row per user).
func (db *PostgresDB) UpsertPresence(ctx context.Context, p *Presence) error {
	query := `
		INSERT INTO availability (user_id, active, latitude, longitude, radius_km, workout_type, available_since, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			active = EXCLUDED.active,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_km = EXCLUDED.radius_km,
			workout_type = EXCLUDED.workout_type,
			available_since = EXCLUDED.available_since,
			expires_at = EXCLUDED.expires_at`

	_, err := db.pool.Exec(ctx, query,
		p.UserID, p.Active, p.Latitude, p.Longitude, p.RadiusKm, p.WorkoutType,
		p.AvailableSince, p.ExpiresAt)
	return err
}

// GetActivePresence returns the user's presence only while it passes the
// active-and-unexpired test. Pure read; never mutates.
func (db *PostgresDB) GetActivePresence(ctx context.Context, userID uuid.UUID, now time.Time) (*Presence, error) {
	p := &Presence{}
	query := `
		SELECT user_id, active, latitude, longitude, radius_km, workout_type, available_since, expires_at
		FROM availability
		WHERE user_id = $1 AND active AND expires_at > $2`

	err := db.pool.QueryRow(ctx, query, userID, now).Scan(
		&p.UserID, &p.Active, &p.Latitude, &p.Longitude, &p.RadiusKm,
		&p.WorkoutType, &p.AvailableSince, &p.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListActivePresences returns every active unexpired presence except the
// caller's own row. Snapshot read for discovery.
func (db *PostgresDB) ListActivePresences(ctx context.Context, exclude uuid.UUID, now time.Time) ([]Presence, error) {
	query := `
		SELECT user_id, active, latitude, longitude, radius_km, workout_type, available_since, expires_at
		FROM availability
		WHERE active AND expires_at > $1 AND user_id <> $2`

	rows, err := db.pool.Query(ctx, query, now, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presences []Presence
	for rows.Next() {
		var p Presence
		if err := rows.Scan(&p.UserID, &p.Active, &p.Latitude, &p.Longitude,
			&p.RadiusKm, &p.WorkoutType, &p.AvailableSince, &p.ExpiresAt); err != nil {
			return nil, err
		}
		presences = append(presences, p)
	}
	return presences, rows.Err()
}

// SweepExpiredPresences flips rows whose TTL has lapsed to inactive and
// returns how many were flipped. This is the only write on the expiry path;
// reads rely on the expires_at predicate alone.
func (db *PostgresDB) SweepExpiredPresences(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE availability SET active = false WHERE active AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
