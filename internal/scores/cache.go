package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/dropzone/internal/models"
)

// StatsCache holds the last successfully computed stats per user. It is
// what LoadStats falls back on when the store cannot be reached.
type StatsCache interface {
	Get(ctx context.Context, userID string) (models.GameStats, bool)
	Set(ctx context.Context, userID string, stats models.GameStats)
}

// MemoryCache is a process-local StatsCache.
type MemoryCache struct {
	mu    sync.RWMutex
	stats map[string]models.GameStats
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{stats: make(map[string]models.GameStats)}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (models.GameStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stats[userID]
	return s, ok
}

func (c *MemoryCache) Set(_ context.Context, userID string, stats models.GameStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[userID] = stats
}

// RedisCache shares cached stats between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func statsCacheKey(userID string) string {
	return fmt.Sprintf("stats:%s", userID)
}

func (c *RedisCache) Get(ctx context.Context, userID string) (models.GameStats, bool) {
	raw, err := c.client.Get(ctx, statsCacheKey(userID)).Bytes()
	if err != nil {
		return models.GameStats{}, false
	}
	var stats models.GameStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return models.GameStats{}, false
	}
	if stats.RecentAttempts == nil {
		stats.RecentAttempts = []models.Attempt{}
	}
	return stats, true
}

func (c *RedisCache) Set(ctx context.Context, userID string, stats models.GameStats) {
	b, err := json.Marshal(stats)
	if err != nil {
		log.Printf("[SCORES] Failed to marshal stats for %s: %v", userID, err)
		return
	}
	if err := c.client.SetEx(ctx, statsCacheKey(userID), b, c.ttl).Err(); err != nil {
		log.Printf("[SCORES] Failed to cache stats for %s: %v", userID, err)
	}
}
