package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = 24 * time.Hour

// RedisStorage implements storage.Storage on Redis. Sessions are JSON
// strings under session:<uuid>; achieved endings are sets under
// endings:<player>.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Client returns the underlying Redis client for sharing with publishers.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func endingsKey(player string) string {
	return "endings:" + player
}

// Session operations

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	data, err := storage.EncodeState(gs)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", id, "error", err)
		return err
	}
	if err := r.client.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Warn("Session not found", "session_id", id)
		return nil, nil // Return nil for not found
	}
	if err != nil {
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	gs, err := storage.DecodeState(data)
	if err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, err
	}
	return gs, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ending operations

func (r *RedisStorage) LoadEndings(ctx context.Context, player string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, endingsKey(player)).Result()
	if err != nil {
		r.logger.Error("Failed to load endings", "player", player, "error", err)
		return nil, fmt.Errorf("failed to load endings: %w", err)
	}
	return ids, nil
}

// SaveEndings replaces the player's ending set with ids.
func (r *RedisStorage) SaveEndings(ctx context.Context, player string, ids []string) error {
	key := endingsKey(player)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(ids) > 0 {
			members := make([]any, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save endings", "player", player, "error", err)
		return fmt.Errorf("failed to save endings: %w", err)
	}
	return nil
}
