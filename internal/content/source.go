// Package content supplies scene documents to game sessions.
package content

import (
	"context"
	"errors"
	"sync"

	"github.com/jwebster45206/scene-engine/pkg/scene"
)

// ErrNotFound is returned by a Source that has no document for an ID.
var ErrNotFound = errors.New("scene not found")

// Source fetches validated scene documents by ID.
type Source interface {
	Fetch(ctx context.Context, id string) (scene.Scene, error)
}

// MapSource serves scenes from memory.
type MapSource struct {
	mu     sync.RWMutex
	scenes map[string]scene.Scene
}

var _ Source = (*MapSource)(nil)

func NewMapSource(scenes map[string]scene.Scene) *MapSource {
	m := &MapSource{scenes: make(map[string]scene.Scene, len(scenes))}
	for id, s := range scenes {
		m.scenes[id] = s
	}
	return m
}

func (m *MapSource) Fetch(ctx context.Context, id string) (scene.Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return scene.Clone(s), nil
}

// Put adds or replaces a scene.
func (m *MapSource) Put(id string, s scene.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[id] = s
}
