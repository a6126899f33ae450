package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to Redis. An empty URL returns a nil
// client so callers can fall back to in-process implementations.
func Connect(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
