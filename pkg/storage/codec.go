package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

// EncodeState serializes a session for a key-value store.
func EncodeState(gs *state.GameState) ([]byte, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	return data, nil
}

// DecodeState restores a session written by EncodeState.
func DecodeState(data []byte) (*state.GameState, error) {
	gs := state.NewGameState()
	if err := json.Unmarshal(data, gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return gs, nil
}
