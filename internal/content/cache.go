package content

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"
	"golang.org/x/sync/singleflight"

	"github.com/jwebster45206/scene-engine/pkg/scene"
	"github.com/jwebster45206/scene-engine/pkg/state"
)

// DefaultFetchTimeout bounds a background fetch.
const DefaultFetchTimeout = 30 * time.Second

// Cache is the scene repository sessions read from. Lookups check
// registered overrides, then the built-in scenes, then fetched documents. A
// miss starts a background fetch and reports the scene as pending.
type Cache struct {
	source       Source
	logger       *slog.Logger
	builtIns     map[string]scene.Scene
	fetchTimeout time.Duration

	mu        sync.RWMutex
	scenes    map[string]scene.Scene
	overrides map[string]scene.Scene
	inflight  mapset.Set[string]
	gens      map[string]uint64
	group     singleflight.Group

	lmu       sync.Mutex
	listeners map[int]func(id string)
	nextID    int
}

var _ state.SceneRepository = (*Cache)(nil)

// NewCache creates a cache over source. storyStart is where built-in/play
// redirects.
func NewCache(source Source, storyStart string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source:       source,
		logger:       logger,
		builtIns:     scene.BuiltIns(storyStart),
		fetchTimeout: DefaultFetchTimeout,
		scenes:       make(map[string]scene.Scene),
		overrides:    make(map[string]scene.Scene),
		inflight:     mapset.New[string](),
		gens:         make(map[string]uint64),
		listeners:    make(map[int]func(id string)),
	}
}

// lookup returns a scene without fetching.
func (c *Cache) lookup(id string) (scene.Scene, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.overrides[id]; ok {
		return s, true
	}
	if s, ok := c.builtIns[id]; ok {
		return s, true
	}
	s, ok := c.scenes[id]
	return s, ok
}

// GetScene returns the scene or nil while it is being fetched.
func (c *Cache) GetScene(id string) scene.Scene {
	if s, ok := c.lookup(id); ok {
		return s
	}
	c.startFetch(id)
	return nil
}

// Load returns the scene, fetching it and waiting when necessary. Missing
// and broken scenes come back as diagnostic scenes.
func (c *Cache) Load(ctx context.Context, id string) scene.Scene {
	if s, ok := c.lookup(id); ok {
		return s
	}
	return c.fetch(ctx, id)
}

// Prefetch starts background fetches for ids not yet known.
func (c *Cache) Prefetch(ids ...string) {
	for _, id := range ids {
		if _, ok := c.lookup(id); !ok {
			c.startFetch(id)
		}
	}
}

// Invalidate forgets the fetched copy of id. A fetch already running for it
// will not be stored, and the next miss starts a fresh one.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.scenes, id)
	c.gens[id]++
	c.inflight.Remove(id)
	c.mu.Unlock()
	c.group.Forget(id)
	c.logger.Debug("Scene invalidated", "scene_id", id)
}

// Register overrides id with s, shadowing built-ins and fetched documents.
// Scene editors use it to preview unsaved work.
func (c *Cache) Register(id string, s scene.Scene) {
	c.mu.Lock()
	c.overrides[id] = s
	c.mu.Unlock()
	c.notify(id)
}

// Unregister drops an override.
func (c *Cache) Unregister(id string) {
	c.mu.Lock()
	delete(c.overrides, id)
	c.mu.Unlock()
	c.notify(id)
}

// Subscribe registers fn to be called with the ID of every scene that
// finishes loading or changes. The returned function unsubscribes.
func (c *Cache) Subscribe(fn func(id string)) func() {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.lmu.Lock()
		defer c.lmu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Cache) notify(id string) {
	c.lmu.Lock()
	fns := make([]func(string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (c *Cache) startFetch(id string) {
	c.mu.Lock()
	if c.inflight.Has(id) {
		c.mu.Unlock()
		return
	}
	c.inflight.Put(id)
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()
		c.fetch(ctx, id)
	}()
}

// fetch loads id from the source once per concurrent burst of callers and
// stores the outcome unless id was invalidated meanwhile.
func (c *Cache) fetch(ctx context.Context, id string) scene.Scene {
	v, _, _ := c.group.Do(id, func() (any, error) {
		c.mu.Lock()
		if s, ok := c.scenes[id]; ok {
			c.inflight.Remove(id)
			c.mu.Unlock()
			return s, nil
		}
		gen := c.gens[id]
		c.mu.Unlock()

		s, err := c.source.Fetch(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			c.logger.Info("Scene not found", "scene_id", id)
			s = scene.NotFound(id)
		case err != nil:
			c.logger.Warn("Failed to load scene", "scene_id", id, "error", err)
			s = scene.LoadError(id, err)
		}

		c.mu.Lock()
		// A stale fetch leaves inflight alone; it belongs to the refetch.
		stored := c.gens[id] == gen
		if stored {
			c.scenes[id] = s
			c.inflight.Remove(id)
		}
		c.mu.Unlock()

		if stored {
			c.notify(id)
		}
		return s, nil
	})
	return v.(scene.Scene)
}

// Blocking adapts the cache into a repository whose GetScene waits for the
// fetch. Server-side sessions use it so a request never sees a pending scene.
func (c *Cache) Blocking(ctx context.Context) state.SceneRepository {
	return blocking{c: c, ctx: ctx}
}

type blocking struct {
	c   *Cache
	ctx context.Context
}

func (b blocking) GetScene(id string) scene.Scene { return b.c.Load(b.ctx, id) }
func (b blocking) Invalidate(id string)           { b.c.Invalidate(id) }
func (b blocking) Prefetch(ids ...string)         { b.c.Prefetch(ids...) }
