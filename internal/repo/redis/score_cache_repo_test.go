package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/paoshea/disco-sub000/internal/domain/model"
)

func TestScoreCacheRoundTrip(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewScoreCacheRepo(client, time.Hour)
	ctx := context.Background()

	score := model.MatchScore{
		Total:        0.62,
		Distance:     0.5,
		Interests:    0.5,
		Verification: 1,
		Photo:        1,
	}

	if err := repo.SetScore(ctx, 1, 2, score); err != nil {
		t.Fatalf("set score: %v", err)
	}

	got, hit := repo.GetScore(ctx, 1, 2)
	if !hit {
		t.Fatalf("expected cache hit")
	}
	if got != score {
		t.Fatalf("unexpected cached score: got %+v want %+v", got, score)
	}
}

func TestScoreCacheMissIsNotAnError(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewScoreCacheRepo(client, time.Hour)

	if _, hit := repo.GetScore(context.Background(), 5, 6); hit {
		t.Fatalf("expected miss for unknown pair")
	}
}

func TestScoreCacheExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewScoreCacheRepo(client, time.Minute)
	ctx := context.Background()

	if err := repo.SetScore(ctx, 1, 2, model.MatchScore{Total: 0.4}); err != nil {
		t.Fatalf("set score: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, hit := repo.GetScore(ctx, 1, 2); hit {
		t.Fatalf("expected cached score to expire")
	}
}

func TestInvalidateUserDropsOnlyTheirScores(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewScoreCacheRepo(client, time.Hour)
	ctx := context.Background()

	if err := repo.SetScore(ctx, 1, 2, model.MatchScore{Total: 0.3}); err != nil {
		t.Fatalf("set score 1->2: %v", err)
	}
	if err := repo.SetScore(ctx, 1, 3, model.MatchScore{Total: 0.7}); err != nil {
		t.Fatalf("set score 1->3: %v", err)
	}
	if err := repo.SetScore(ctx, 2, 1, model.MatchScore{Total: 0.9}); err != nil {
		t.Fatalf("set score 2->1: %v", err)
	}

	if err := repo.InvalidateUser(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, hit := repo.GetScore(ctx, 1, 2); hit {
		t.Fatalf("score 1->2 should be gone")
	}
	if _, hit := repo.GetScore(ctx, 1, 3); hit {
		t.Fatalf("score 1->3 should be gone")
	}
	if _, hit := repo.GetScore(ctx, 2, 1); !hit {
		t.Fatalf("other viewers' scores must survive invalidation")
	}
}

func TestIncrementWindowCountsAndExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewRateRepo(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := repo.IncrementWindow(ctx, "rate:test:1", time.Minute)
		if err != nil {
			t.Fatalf("increment #%d: %v", want, err)
		}
		if count != want {
			t.Fatalf("unexpected count: got %d want %d", count, want)
		}
		if ttl <= 0 {
			t.Fatalf("expected positive ttl, got %v", ttl)
		}
	}

	mr.FastForward(61 * time.Second)

	count, _, err := repo.IncrementWindow(ctx, "rate:test:1", time.Minute)
	if err != nil {
		t.Fatalf("increment after window: %v", err)
	}
	if count != 1 {
		t.Fatalf("window should reset after expiry, got count %d", count)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
