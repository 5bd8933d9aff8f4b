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

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

// UserRecord is a user row joined with the latest reported location.
// Lat and Lon are nil when the user never shared a location.
type UserRecord struct {
	ID            int64
	Email         string
	DisplayName   string
	EmailVerified bool
	PhotoKey      string
	Lat           *float64
	Lon           *float64
	UpdatedAt     time.Time
}

// CandidateRecord additionally carries the candidate's stored raw
// preference payload so scoring needs no second round trip.
type CandidateRecord struct {
	UserRecord
	Preferences model.RawPreferences
}

type CandidateQuery struct {
	ViewerUserID int64
	VerifiedOnly bool
	WithPhoto    bool
	Limit        int
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetUser(ctx context.Context, userID int64) (UserRecord, error) {
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	u.id,
	u.email,
	COALESCE(u.display_name, ''),
	u.email_verified,
	COALESCE(u.photo_key, ''),
	l.lat,
	l.lon,
	u.updated_at
FROM users u
LEFT JOIN locations l ON l.user_id = u.id
WHERE u.id = $1
`, userID).Scan(
		&rec.ID,
		&rec.Email,
		&rec.DisplayName,
		&rec.EmailVerified,
		&rec.PhotoKey,
		&rec.Lat,
		&rec.Lon,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	return rec, nil
}

// ListCandidates applies the viewer's hard filters in SQL so excluded
// profiles are never scored. Users the viewer has a blocked match with
// are filtered out here as well.
func (r *UserRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]CandidateRecord, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if q.Limit <= 0 {
		q.Limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	u.email,
	COALESCE(u.display_name, ''),
	u.email_verified,
	COALESCE(u.photo_key, ''),
	l.lat,
	l.lon,
	u.updated_at,
	COALESCE(p.prefs, '{}'::jsonb)
FROM users u
LEFT JOIN locations l ON l.user_id = u.id
LEFT JOIN preferences p ON p.user_id = u.id
WHERE
	u.id <> $1
	AND ($2::bool = false OR u.email_verified)
	AND ($3::bool = false OR COALESCE(u.photo_key, '') <> '')
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.user_lo_id = LEAST(u.id, $1)
			AND m.user_hi_id = GREATEST(u.id, $1)
			AND m.status = 'blocked'
	)
ORDER BY u.updated_at DESC, u.id DESC
LIMIT $4
`, q.ViewerUserID, q.VerifiedOnly, q.WithPhoto, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRecord, 0, q.Limit)
	for rows.Next() {
		var item CandidateRecord
		var prefsRaw []byte
		if err := rows.Scan(
			&item.ID,
			&item.Email,
			&item.DisplayName,
			&item.EmailVerified,
			&item.PhotoKey,
			&item.Lat,
			&item.Lon,
			&item.UpdatedAt,
			&prefsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if err := json.Unmarshal(prefsRaw, &item.Preferences); err != nil {
			return nil, fmt.Errorf("decode candidate preferences: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return items, nil
}

// DeleteLocationsOlderThan drops location rows not refreshed since the
// cutoff. Users whose row is dropped simply stop being scoreable until
// they report a location again.
func (r *UserRepo) DeleteLocationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM locations WHERE updated_at < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale locations: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *UserRepo) SavePhotoKey(ctx context.Context, userID int64, photoKey string, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users SET photo_key = $2, updated_at = $3 WHERE id = $1
`, userID, photoKey, at)
	if err != nil {
		return fmt.Errorf("save photo key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UserRepo) SaveLocation(ctx context.Context, userID int64, lat, lon float64, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO locations (user_id, lat, lon, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	updated_at = EXCLUDED.updated_at
`, userID, lat, lon, at)
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}

	return nil
}
