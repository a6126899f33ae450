package scores

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptEventsChannel is the Redis channel recorded attempts are announced on.
const AttemptEventsChannel = "attempt_events"

// AttemptEvent is published after an attempt and its profile update are stored.
type AttemptEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	AttemptID  string    `json:"attempt_id"`
	Score      int       `json:"score"`
	BestScore  int       `json:"best_score"`
	TotalPlays int       `json:"total_plays"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher announces recorded attempts. Failures are logged, never returned.
type Publisher interface {
	Publish(ctx context.Context, event AttemptEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, AttemptEvent) {}

// RedisPublisher publishes attempt events on AttemptEventsChannel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event AttemptEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Printf("[SCORES] Failed to marshal attempt event: %v", err)
		return
	}
	if n, err := p.client.Publish(ctx, AttemptEventsChannel, b).Result(); err != nil {
		log.Printf("[SCORES] Failed to publish attempt event for %s: %v", event.UserID, err)
	} else {
		log.Printf("[SCORES] Published attempt event for %s to %d subscribers", event.UserID, n)
	}
}
