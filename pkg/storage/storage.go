package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

// Storage defines the persistence a multi-session server needs: play
// sessions and each player's achieved endings.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations. LoadSession returns nil, nil when the session
	// does not exist.
	SaveSession(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadSession(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Ending progress, keyed by player
	LoadEndings(ctx context.Context, player string) ([]string, error)
	SaveEndings(ctx context.Context, player string, ids []string) error
}
