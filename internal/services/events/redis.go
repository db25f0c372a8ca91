package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes events to Redis Pub/Sub for SSE distribution
type RedisBroadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*RedisBroadcaster)(nil)

// NewRedisBroadcaster creates a new event broadcaster. The client is shared
// and is not closed by Close.
func NewRedisBroadcaster(redisClient *redis.Client, logger *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the pub/sub channel carrying a game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Publish publishes an event to the game-specific channel
func (b *RedisBroadcaster) Publish(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}

func (b *RedisBroadcaster) Close() error { return nil }
