// Package session runs server-side games: each action loads a session,
// applies one state-machine operation, persists the result and publishes
// what changed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/internal/content"
	"github.com/jwebster45206/scene-engine/internal/logger"
	"github.com/jwebster45206/scene-engine/internal/services/events"
	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// AnonymousPlayer owns the ending progress of sessions created without a
// player name.
const AnonymousPlayer = "anonymous"

// Snapshot is what a client sees after an action.
type Snapshot struct {
	ID     uuid.UUID          `json:"id"`
	Player string             `json:"player"`
	View   state.View         `json:"view"`
	Error  *state.RuntimeError `json:"-"`
}

// Manager serializes actions per session. Actions on different sessions run
// concurrently.
type Manager struct {
	store     storage.Storage
	scenes    *content.Cache
	publisher events.Publisher
	cfg       state.Config
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

// sessionLock is dropped from Manager.locks once no action holds or waits
// for it.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewManager(store storage.Storage, scenes *content.Cache, publisher events.Publisher, cfg state.Config, log *slog.Logger) *Manager {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.Logger = log
	return &Manager{
		store:     store,
		scenes:    scenes,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		locks:     make(map[uuid.UUID]*sessionLock),
	}
}

func (m *Manager) lock(id uuid.UUID) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Create starts a new session for player on the configured start scene.
func (m *Manager) Create(ctx context.Context, player string) (*Snapshot, error) {
	if player == "" {
		player = AnonymousPlayer
	}
	endings, err := m.loadEndings(ctx, player)
	if err != nil {
		return nil, err
	}
	before := endings.List()

	g := state.New(m.scenes.Blocking(ctx), endings, m.cfg)
	gs := g.State()
	gs.Player = player

	logger.WithSession(m.logger, gs.ID).Info("Session created", "player", player, "scene_id", gs.Scene)
	// A new session always reports its first scene.
	return m.finish(ctx, g, endings, before, "")
}

// Get returns the current view of a session.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	return m.run(ctx, id, func(g *state.Game) error { return nil })
}

// Choose activates an option of the session's current scene.
func (m *Manager) Choose(ctx context.Context, id uuid.UUID, index int) (*Snapshot, error) {
	return m.run(ctx, id, func(g *state.Game) error { return g.Choose(index) })
}

// Navigate follows a link from the session's current scene, including
// control links such as @undo and @reset.
func (m *Manager) Navigate(ctx context.Context, id uuid.UUID, to string) (*Snapshot, error) {
	return m.run(ctx, id, func(g *state.Game) error {
		g.GoToScene(to)
		return nil
	})
}

// Delete ends a session.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := m.lock(id)
	defer unlock()
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	logger.WithSession(m.logger, id).Info("Session deleted")
	return nil
}

func (m *Manager) run(ctx context.Context, id uuid.UUID, action func(g *state.Game) error) (*Snapshot, error) {
	unlock := m.lock(id)
	defer unlock()

	gs, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if gs.Player == "" {
		gs.Player = AnonymousPlayer
	}
	endings, err := m.loadEndings(ctx, gs.Player)
	if err != nil {
		return nil, err
	}
	before := endings.List()

	g := state.Restore(gs, m.scenes.Blocking(ctx), endings, m.cfg)
	from := gs.Scene
	if err := action(g); err != nil {
		return nil, err
	}
	return m.finish(ctx, g, endings, before, from)
}

// finish renders the view, persists the session and progress, and publishes
// events for what changed since from.
func (m *Manager) finish(ctx context.Context, g *state.Game, endings *storage.MemoryEndings, before []string, from string) (*Snapshot, error) {
	view := g.View()
	gs := g.State()
	log := logger.WithSession(m.logger, gs.ID)

	if err := m.store.SaveSession(ctx, gs.ID, gs); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	after := endings.List()
	if !slices.Equal(before, after) {
		if err := m.store.SaveEndings(ctx, gs.Player, after); err != nil {
			return nil, fmt.Errorf("failed to save endings: %w", err)
		}
	}

	requestID := RequestID(ctx)
	rerr := g.TakeError()
	if rerr != nil {
		m.publish(ctx, log, gs.ID, events.RuntimeError(gs.ID, requestID, rerr))
	}
	for _, id := range after {
		if !slices.Contains(before, id) {
			log.Info("Ending achieved", "ending_id", id, "total", len(after))
			m.publish(ctx, log, gs.ID, events.EndingAchieved(gs.ID, requestID, id, len(after)))
		}
	}
	if gs.Scene != from {
		m.publish(ctx, log, gs.ID, events.SceneChanged(gs.ID, requestID, gs))
	}

	return &Snapshot{ID: gs.ID, Player: gs.Player, View: view, Error: rerr}, nil
}

func (m *Manager) publish(ctx context.Context, log *slog.Logger, id uuid.UUID, ev events.Event) {
	if err := m.publisher.Publish(ctx, id, ev); err != nil {
		logger.WithError(log, err).Warn("Failed to publish event", "event_type", ev.Type)
	}
}

func (m *Manager) loadEndings(ctx context.Context, player string) (*storage.MemoryEndings, error) {
	ids, err := m.store.LoadEndings(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed to load endings: %w", err)
	}
	return storage.NewMemoryEndings(ids...), nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so published events carry the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
