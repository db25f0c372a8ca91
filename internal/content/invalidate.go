package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel carries the IDs of scenes whose stored documents
// changed, one ID per message.
const InvalidationChannel = "scene-invalidations"

// PublishInvalidation tells every API instance to drop its cached copy of ids.
func PublishInvalidation(ctx context.Context, client *redis.Client, ids ...string) error {
	for _, id := range ids {
		if err := client.Publish(ctx, InvalidationChannel, id).Err(); err != nil {
			return fmt.Errorf("failed to publish invalidation for %s: %w", id, err)
		}
	}
	return nil
}

// WatchInvalidations invalidates cache entries named on InvalidationChannel
// until ctx is done. It returns once the subscription is confirmed.
func WatchInvalidations(ctx context.Context, client *redis.Client, cache *Cache, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	pubsub := client.Subscribe(ctx, InvalidationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", InvalidationChannel, err)
	}

	go func() {
		defer func() {
			_ = pubsub.Close() // Ignore error in defer
		}()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				cache.Invalidate(msg.Payload)
				cache.notify(msg.Payload)
				logger.Info("Scene invalidated by publisher", "scene_id", msg.Payload)
			}
		}
	}()
	return nil
}
