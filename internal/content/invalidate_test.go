package content

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/pkg/scene"
)

func TestWatchInvalidations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := NewMapSource(testScenes())
	c := NewCache(source, "", nil)
	ctx := context.Background()
	require.Equal(t, "One.", c.Load(ctx, "story/one").Common().Passage)

	notified := make(chan string, 16)
	c.Subscribe(func(id string) { notified <- id })

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, WatchInvalidations(watchCtx, client, c, nil))
	assert.Equal(t, 1, mr.PubSubNumSub(InvalidationChannel)[InvalidationChannel])

	source.Put("story/one", &scene.Normal{Base: scene.Base{Passage: "One, edited."}, Options: []scene.Option{}})
	require.NoError(t, PublishInvalidation(ctx, client, "story/one"))

	require.Eventually(t, func() bool {
		return c.Load(ctx, "story/one").Common().Passage == "One, edited."
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, drain(notified), "story/one")

	cancel()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(InvalidationChannel)[InvalidationChannel] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishInvalidation_ClosedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Close())

	err := PublishInvalidation(context.Background(), client, "story/one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "story/one")
}

func drain(ch chan string) []string {
	var out []string
	for {
		select {
		case id := <-ch:
			out = append(out, id)
		default:
			return out
		}
	}
}
