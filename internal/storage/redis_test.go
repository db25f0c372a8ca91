package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/pkg/expr"
	"github.com/jwebster45206/scene-engine/pkg/state"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewRedisStorage("redis://"+mr.Addr(), time.Hour, logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func TestRedisStorage_Ping(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.WaitForConnection(ctx))

	mr.SetError("server down")
	assert.Error(t, store.Ping(ctx))
}

func TestRedisStorage_SessionRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	gs := state.NewGameState()
	gs.Scene = "story/two"
	gs.PrevScene = "story/one"
	gs.Visited = state.NewVisitedSet("story/one", "story/two")
	gs.Vars["gold"] = expr.Number(12)

	require.NoError(t, store.SaveSession(ctx, gs.ID, gs))
	assert.True(t, mr.Exists("session:"+gs.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL("session:"+gs.ID.String()))

	loaded, err := store.LoadSession(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, gs.ID, loaded.ID)
	assert.Equal(t, "story/two", loaded.Scene)
	assert.Equal(t, []string{"story/one", "story/two"}, loaded.Visited.IDs())
	assert.True(t, loaded.Vars["gold"].Equal(expr.Number(12)))

	require.NoError(t, store.DeleteSession(ctx, gs.ID))
	loaded, err = store.LoadSession(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_SessionExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	gs := state.NewGameState()

	require.NoError(t, store.SaveSession(ctx, gs.ID, gs))
	mr.FastForward(2 * time.Hour)

	loaded, err := store.LoadSession(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadMissingSession(t *testing.T) {
	store, _ := setupTestRedis(t)

	loaded, err := store.LoadSession(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_CorruptSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	id := uuid.New()
	require.NoError(t, mr.Set("session:"+id.String(), "{not json"))

	_, err := store.LoadSession(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_SaveNilSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	assert.Error(t, store.SaveSession(context.Background(), uuid.New(), nil))
}

func TestRedisStorage_Endings(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	ids, err := store.LoadEndings(ctx, "player-1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.SaveEndings(ctx, "player-1", []string{"story/end", "story/other-end"}))
	ids, err = store.LoadEndings(ctx, "player-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"story/end", "story/other-end"}, ids)

	members, err := mr.Members("endings:player-1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, store.SaveEndings(ctx, "player-1", []string{"story/end"}))
	ids, err = store.LoadEndings(ctx, "player-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"story/end"}, ids)

	require.NoError(t, store.SaveEndings(ctx, "player-1", nil))
	assert.False(t, mr.Exists("endings:player-1"))
}
