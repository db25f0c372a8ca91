package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSceneChanged   EventType = "game.scene_changed"
	EventTypeRuntimeError   EventType = "game.runtime_error"
	EventTypeEndingAchieved EventType = "game.ending_achieved"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher delivers game events to whoever watches a session.
type Publisher interface {
	Publish(ctx context.Context, gameID uuid.UUID, event Event) error
	Close() error
}

// SceneChanged reports a session's move to a new scene.
func SceneChanged(gameID uuid.UUID, requestID string, gs *state.GameState) Event {
	return Event{
		Type:      EventTypeSceneChanged,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"scene":      gs.Scene,
			"prev_scene": gs.PrevScene,
			"title":      gs.Title,
		},
	}
}

// RuntimeError reports a failed scene script.
func RuntimeError(gameID uuid.UUID, requestID string, rerr *state.RuntimeError) Event {
	return Event{
		Type:      EventTypeRuntimeError,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"scene":      rerr.Scene,
			"source":     rerr.Source,
			"expression": rerr.Expression,
			"error":      rerr.Err.Error(),
		},
	}
}

// EndingAchieved reports an ending the player reached for the first time.
func EndingAchieved(gameID uuid.UUID, requestID, endingID string, total int) Event {
	return Event{
		Type:      EventTypeEndingAchieved,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"ending": endingID,
			"total":  total,
		},
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, uuid.UUID, Event) error { return nil }
func (Nop) Close() error                                    { return nil }
