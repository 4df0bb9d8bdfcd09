// Package cache keeps the public leaderboard in Redis so repeated reads do
// not hit the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 30 * time.Second

type Leaderboard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewLeaderboard(client *redis.Client, prefix string, ttl time.Duration) *Leaderboard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Leaderboard{client: client, prefix: prefix, ttl: ttl}
}

func (c *Leaderboard) key(limit int) string {
	return c.prefix + "leaderboard:" + strconv.Itoa(limit)
}

// GetLeaderboard reports false on a cache miss.
func (c *Leaderboard) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error) {
	data, err := c.client.Get(ctx, c.key(limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return entries, true, nil
}

func (c *Leaderboard) SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.key(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// InvalidateLeaderboard drops every cached leaderboard size.
func (c *Leaderboard) InvalidateLeaderboard(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"leaderboard:*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
