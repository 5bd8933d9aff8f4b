package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paoshea/disco-sub000/internal/domain/model"
)

type PreferenceRepo struct {
	pool *pgxpool.Pool
}

func NewPreferenceRepo(pool *pgxpool.Pool) *PreferenceRepo {
	return &PreferenceRepo{pool: pool}
}

// GetPreferences returns the stored raw record. A user with no row gets
// an empty record; normalization fills the defaults downstream.
func (r *PreferenceRepo) GetPreferences(ctx context.Context, userID int64) (model.RawPreferences, error) {
	if userID <= 0 {
		return model.RawPreferences{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.RawPreferences{}, fmt.Errorf("postgres pool is nil")
	}

	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT prefs
FROM preferences
WHERE user_id = $1
`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RawPreferences{}, nil
		}
		return model.RawPreferences{}, fmt.Errorf("get preferences: %w", err)
	}

	var prefs model.RawPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return model.RawPreferences{}, fmt.Errorf("decode preferences: %w", err)
	}

	return prefs, nil
}

// UpsertPreferences merges the patch into the stored record. Fields
// absent from the patch keep their stored value.
func (r *PreferenceRepo) UpsertPreferences(ctx context.Context, userID int64, patch model.RawPreferences, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode preferences patch: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO preferences (user_id, prefs, updated_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (user_id) DO UPDATE SET
	prefs = preferences.prefs || EXCLUDED.prefs,
	updated_at = EXCLUDED.updated_at
`, userID, payload, at)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}

	return nil
}
