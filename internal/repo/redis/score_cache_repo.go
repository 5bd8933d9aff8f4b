package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/paoshea/disco-sub000/internal/domain/model"
)

// ScoreCacheRepo is a read-through cache for computed match scores.
// Scores are cheap to recompute, so every failure path degrades to a
// miss rather than an error the caller has to handle.
type ScoreCacheRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewScoreCacheRepo(client *goredis.Client, ttl time.Duration) *ScoreCacheRepo {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ScoreCacheRepo{client: client, ttl: ttl}
}

func (r *ScoreCacheRepo) GetScore(ctx context.Context, userID, candidateID int64) (model.MatchScore, bool) {
	if r == nil || r.client == nil || userID <= 0 || candidateID <= 0 {
		return model.MatchScore{}, false
	}

	raw, err := r.client.Get(ctx, scoreKey(userID, candidateID)).Bytes()
	if err != nil {
		return model.MatchScore{}, false
	}

	var score model.MatchScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return model.MatchScore{}, false
	}

	return score, true
}

func (r *ScoreCacheRepo) SetScore(ctx context.Context, userID, candidateID int64, score model.MatchScore) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || candidateID <= 0 {
		return fmt.Errorf("invalid score cache payload")
	}

	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode match score: %w", err)
	}

	if err := r.client.Set(ctx, scoreKey(userID, candidateID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set match score: %w", err)
	}

	return nil
}

// InvalidateUser drops every cached score computed for the user's own
// view. Called when the user's preferences change.
func (r *ScoreCacheRepo) InvalidateUser(ctx context.Context, userID int64) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	pattern := "match_score:" + strconv.FormatInt(userID, 10) + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete cached score: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached scores: %w", err)
	}

	return nil
}

func scoreKey(userID, candidateID int64) string {
	return "match_score:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(candidateID, 10)
}
