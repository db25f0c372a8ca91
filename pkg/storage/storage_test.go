package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

func TestMockStorage_SessionLifecycle(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	gs := state.NewGameState()
	gs.Scene = "story/one"
	require.NoError(t, m.SaveSession(ctx, gs.ID, gs))

	gs.Scene = "story/changed"
	loaded, err := m.LoadSession(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "story/one", loaded.Scene, "saved sessions are snapshots")

	require.NoError(t, m.DeleteSession(ctx, gs.ID))
	loaded, err = m.LoadSession(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMockStorage_Errors(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	assert.NoError(t, m.Ping(ctx))
	m.SetPingError(errors.New("down"))
	assert.EqualError(t, m.Ping(ctx), "down")

	assert.Error(t, m.SaveSession(ctx, uuid.New(), nil))

	m.SetSaveError(errors.New("full"))
	assert.EqualError(t, m.SaveSession(ctx, uuid.New(), state.NewGameState()), "full")
	assert.EqualError(t, m.SaveEndings(ctx, "p", []string{"a/b"}), "full")
}

func TestMockStorage_Endings(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	ids := []string{"story/end"}
	require.NoError(t, m.SaveEndings(ctx, "p", ids))
	ids[0] = "mutated"

	got, err := m.LoadEndings(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"story/end"}, got)

	got, err = m.LoadEndings(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryEndings(t *testing.T) {
	e := NewMemoryEndings("story/b", "story/a")

	assert.True(t, e.IsAchieved("story/a"))
	assert.False(t, e.IsAchieved("story/c"))
	assert.Equal(t, 2, e.CountAchieved())

	e.MarkAchieved("story/c")
	e.MarkAchieved("story/c")
	assert.Equal(t, 3, e.CountAchieved())
	assert.Equal(t, []string{"story/a", "story/b", "story/c"}, e.List())

	e.MarkNotAchieved("story/a")
	e.MarkNotAchieved("story/missing")
	assert.Equal(t, []string{"story/b", "story/c"}, e.List())
}

func TestMemoryEndings_Concurrent(t *testing.T) {
	e := NewMemoryEndings()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "story/end"
			if i%2 == 0 {
				id = "story/other"
			}
			e.MarkAchieved(id)
			_ = e.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2, e.CountAchieved())
}
