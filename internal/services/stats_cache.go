package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StatsCache stores per-user task counters between mutations. Cache failures
// are never fatal; callers fall back to the database.
type StatsCache interface {
	Get(ctx context.Context, userID string) (models.TaskStats, bool)
	Set(ctx context.Context, userID string, stats models.TaskStats)
	Evict(ctx context.Context, userID string)
}

// Notifier pushes change notifications to a user's live connections.
type Notifier interface {
	NotifyUser(userID, action string, payload any)
}

// RedisStatsCache is a StatsCache backed by Redis.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache creates a RedisStatsCache. A non-positive ttl keeps
// entries until they are evicted.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStatsCache{client: client, ttl: ttl}
}

func statsKey(userID string) string {
	return "taskflow:stats:" + userID
}

func (c *RedisStatsCache) Get(ctx context.Context, userID string) (models.TaskStats, bool) {
	raw, err := c.client.Get(ctx, statsKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("user_id", userID).Msg("Stats cache read failed")
		}
		return models.TaskStats{}, false
	}
	var stats models.TaskStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Discarding corrupt stats cache entry")
		c.Evict(ctx, userID)
		return models.TaskStats{}, false
	}
	return stats, true
}

func (c *RedisStatsCache) Set(ctx context.Context, userID string, stats models.TaskStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(userID), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Stats cache write failed")
	}
}

func (c *RedisStatsCache) Evict(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, statsKey(userID)).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Stats cache eviction failed")
	}
}
