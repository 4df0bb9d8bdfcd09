package cache

import (
	"context"
	"testing"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// requires Redis running on localhost:6379, skipped otherwise
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T) *Leaderboard {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	prefix := "test:" + uuid.NewString() + ":"
	c := NewLeaderboard(client, prefix, time.Minute)
	t.Cleanup(func() {
		_ = c.InvalidateLeaderboard(ctx)
		client.Close()
	})
	return c
}

func TestLeaderboard_MissSetHit(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.GetLeaderboard(ctx, 10); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	want := []models.LeaderboardEntry{{ID: uuid.New(), Name: "Ada", XP: 40}}
	if err := c.SetLeaderboard(ctx, 10, want); err != nil {
		t.Fatalf("SetLeaderboard: %v", err)
	}
	got, ok, err := c.GetLeaderboard(ctx, 10)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLeaderboard_Invalidate(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	for _, limit := range []int{3, 10} {
		if err := c.SetLeaderboard(ctx, limit, []models.LeaderboardEntry{}); err != nil {
			t.Fatalf("SetLeaderboard: %v", err)
		}
	}
	if err := c.InvalidateLeaderboard(ctx); err != nil {
		t.Fatalf("InvalidateLeaderboard: %v", err)
	}
	for _, limit := range []int{3, 10} {
		if _, ok, _ := c.GetLeaderboard(ctx, limit); ok {
			t.Fatalf("limit %d still cached", limit)
		}
	}
}

func TestNewLeaderboard_DefaultTTL(t *testing.T) {
	c := NewLeaderboard(nil, "", 0)
	if c.ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
	if c.key(10) != "leaderboard:10" {
		t.Fatalf("key = %q", c.key(10))
	}
}
