package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (db *PostgresDB) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p := &Profile{}
	err := db.pool.QueryRow(ctx, `
		SELECT user_id, display_name, workout_preference, bio, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.DisplayName, &p.WorkoutPreference, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *PostgresDB) UpsertProfile(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, workout_preference, bio)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			workout_preference = EXCLUDED.workout_preference,
			bio = EXCLUDED.bio,
			updated_at = now()
		RETURNING created_at, updated_at`

	return db.pool.QueryRow(ctx, query,
		p.UserID, p.DisplayName, p.WorkoutPreference, p.Bio).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}
