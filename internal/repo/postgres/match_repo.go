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

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

// MatchRecord is the single row stored per unordered user pair.
// AcceptedLo and AcceptedHi track which side has accepted so mutual
// acceptance can be detected without a reverse-row lookup.
type MatchRecord struct {
	ID         int64
	UserLoID   int64
	UserHiID   int64
	Status     string
	AcceptedLo bool
	AcceptedHi bool
	Score      model.MatchScore
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AcceptedBy reports whether the given user has accepted this pair.
func (r MatchRecord) AcceptedBy(userID int64) bool {
	if userID == r.UserLoID {
		return r.AcceptedLo
	}
	if userID == r.UserHiID {
		return r.AcceptedHi
	}
	return false
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// FindByUsers looks up the single row for the unordered pair. The
// unique constraint on (user_lo_id, user_hi_id) makes the reverse
// lookup unnecessary.
func (r *MatchRepo) FindByUsers(ctx context.Context, userID, targetID int64) (MatchRecord, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return MatchRecord{}, fmt.Errorf("invalid match lookup payload")
	}
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}

	lo, hi := model.PairKey(userID, targetID)

	var rec MatchRecord
	var scoreRaw []byte
	err := r.pool.QueryRow(ctx, `
SELECT id, user_lo_id, user_hi_id, status, accepted_lo, accepted_hi, score, created_at, updated_at
FROM matches
WHERE user_lo_id = $1 AND user_hi_id = $2
`, lo, hi).Scan(
		&rec.ID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.Status,
		&rec.AcceptedLo,
		&rec.AcceptedHi,
		&scoreRaw,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("find match: %w", err)
	}

	if err := json.Unmarshal(scoreRaw, &rec.Score); err != nil {
		return MatchRecord{}, fmt.Errorf("decode match score: %w", err)
	}

	return rec, nil
}

// UpsertStatus creates the pair row in the given status, or moves an
// existing row to it. Acceptance flags are sticky: accepting records
// the actor's side, other transitions leave both flags untouched. The
// score snapshot is written only on insert; a status change never
// rewrites the stored score.
func (r *MatchRepo) UpsertStatus(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64, status string, score model.MatchScore, now time.Time) (MatchRecord, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return MatchRecord{}, fmt.Errorf("invalid match upsert payload")
	}
	if tx == nil {
		return MatchRecord{}, fmt.Errorf("transaction is required")
	}

	lo, hi := model.PairKey(actorUserID, targetUserID)
	accepting := status == "accepted"
	acceptedLo := accepting && actorUserID == lo
	acceptedHi := accepting && actorUserID == hi

	scoreRaw, err := json.Marshal(score)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("encode match score: %w", err)
	}

	var rec MatchRecord
	var storedScore []byte
	err = tx.QueryRow(ctx, `
INSERT INTO matches (user_lo_id, user_hi_id, status, accepted_lo, accepted_hi, score, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $7)
ON CONFLICT (user_lo_id, user_hi_id) DO UPDATE SET
	status = EXCLUDED.status,
	accepted_lo = matches.accepted_lo OR EXCLUDED.accepted_lo,
	accepted_hi = matches.accepted_hi OR EXCLUDED.accepted_hi,
	updated_at = EXCLUDED.updated_at
RETURNING id, user_lo_id, user_hi_id, status, accepted_lo, accepted_hi, score, created_at, updated_at
`, lo, hi, status, acceptedLo, acceptedHi, scoreRaw, now.UTC()).Scan(
		&rec.ID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.Status,
		&rec.AcceptedLo,
		&rec.AcceptedHi,
		&storedScore,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("upsert match status: %w", err)
	}

	if err := json.Unmarshal(storedScore, &rec.Score); err != nil {
		return MatchRecord{}, fmt.Errorf("decode match score: %w", err)
	}

	return rec, nil
}
