package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID][]byte
	endings   map[string][]string
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID][]byte),
		endings:  make(map[string][]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every subsequent save fail with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession stores a snapshot so later changes to gs are not shared
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	data, err := EncodeState(gs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = data
	return nil
}

// LoadSession mocks loading a session
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	data, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}
	return DecodeState(data)
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// LoadEndings mocks loading a player's achieved endings
func (m *MockStorage) LoadEndings(ctx context.Context, player string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.endings[player]), nil
}

// SaveEndings mocks saving a player's achieved endings
func (m *MockStorage) SaveEndings(ctx context.Context, player string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.endings[player] = slices.Clone(ids)
	return nil
}
