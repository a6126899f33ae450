package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/dropzone/internal/scores"
)

// StartAttemptEventSubscriber forwards attempt events published by any
// server instance to the matching user's connections on this one.
func StartAttemptEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; attempt event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, scores.AttemptEventsChannel)
	ch := pubsub.Channel()
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()
	go func() {
		log.Printf("[WS] %s subscriber started", scores.AttemptEventsChannel)
		for msg := range ch {
			var event scores.AttemptEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			switch event.Type {
			case "attempt_recorded":
				hub.SendToUser(event.UserID, Envelope{Type: "stats_updated", Data: event})
			default:
				log.Printf("[WS] unknown event type: %s", event.Type)
			}
		}
	}()
}
