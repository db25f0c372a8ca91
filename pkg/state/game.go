package state

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwebster45206/scene-engine/pkg/expr"
	"github.com/jwebster45206/scene-engine/pkg/link"
	"github.com/jwebster45206/scene-engine/pkg/scene"
)

var (
	ErrUnknownOption     = errors.New("unknown option")
	ErrOptionUnavailable = errors.New("option unavailable")
)

// DefaultMaxDepth bounds goToScene calls nested inside scene scripts.
const DefaultMaxDepth = 16

// Control links understood by GoToScene.
const (
	LinkUndo             = "@undo"
	LinkReload           = "@reload"
	LinkReset            = "@reset"
	LinkEnd              = "@end"
	LinkResetAllProgress = "@reset-all-progress"
)

// Config tunes a Game. Zero values fall back to the built-in scenes.
type Config struct {
	StartScene       string // where New and reset() go
	FirstEndingScene string // shown after the very first ending
	Title            string
	Production       bool
	Preview          bool
	MaxDepth         int

	// OpenExternal receives http(s) links. Nil ignores them.
	OpenExternal func(url string)
	Logger       *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.StartScene == "" {
		c.StartScene = scene.StartID
	}
	if c.FirstEndingScene == "" {
		c.FirstEndingScene = scene.FirstEndingID
	}
	if c.Title == "" {
		c.Title = scene.DefaultGameTitle
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// RuntimeError describes a scene script that failed.
type RuntimeError struct {
	Scene      string
	Source     string
	Expression string
	Err        error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("at scene %s during %s: %v", e.Scene, e.Source, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Game is the scene navigation state machine for one session. It is not safe
// for concurrent use; Subscribe may be called from any goroutine.
type Game struct {
	gs      *GameState
	scenes  SceneRepository
	endings EndingStore
	cfg     Config
	funcs   map[string]expr.Value

	depth   int
	lastErr *RuntimeError

	mu        sync.Mutex
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func()
}

// New starts a session on cfg.StartScene.
func New(scenes SceneRepository, endings EndingStore, cfg Config) *Game {
	g := newGame(NewGameState(), scenes, endings, cfg)
	g.gs.Title = g.cfg.Title
	g.GoToScene("/" + g.cfg.StartScene)
	return g
}

// Restore resumes a persisted session without running any hooks.
func Restore(gs *GameState, scenes SceneRepository, endings EndingStore, cfg Config) *Game {
	gs.normalize()
	return newGame(gs, scenes, endings, cfg)
}

func newGame(gs *GameState, scenes SceneRepository, endings EndingStore, cfg Config) *Game {
	g := &Game{
		gs:      gs,
		scenes:  scenes,
		endings: endings,
		cfg:     cfg.withDefaults(),
	}
	g.funcs = g.scriptFuncs()
	return g
}

// State exposes the session's environment for persistence.
func (g *Game) State() *GameState { return g.gs }

// Scene returns the current scene, or nil while it loads.
func (g *Game) Scene() scene.Scene {
	if link.IsControl(g.gs.Scene) {
		return nil
	}
	return g.scenes.GetScene(g.gs.Scene)
}

// Subscribe registers fn to run after every state change. The returned
// function unsubscribes.
func (g *Game) Subscribe(fn func()) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.listeners = append(g.listeners, listener{id: id, fn: fn})
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, l := range g.listeners {
			if l.id == id {
				g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

func (g *Game) emit() {
	g.mu.Lock()
	fns := make([]func(), len(g.listeners))
	for i, l := range g.listeners {
		fns[i] = l.fn
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// TakeError returns the most recent script failure, if any, and forgets it.
func (g *Game) TakeError() *RuntimeError {
	err := g.lastErr
	g.lastErr = nil
	return err
}

// GoToScene follows link: a control token, an external URL or a scene path
// relative to the current scene. Script failures land on the runtime-error
// scene instead of being returned.
func (g *Game) GoToScene(lnk string) {
	g.navigate(lnk)
	g.emit()
}

// Reset clears the session and starts again at id, or at the configured
// start scene when id is empty.
func (g *Game) Reset(id string) {
	g.reset(id)
	g.emit()
}

// Eval evaluates expression against the session. A failure moves the game
// to the runtime-error scene and yields undefined; source labels the caller
// in that scene's diagnostics.
func (g *Game) Eval(expression, source string) expr.Value {
	v, err := expr.Evaluate(expression, g)
	if err != nil {
		g.fail(expression, source, err)
		return expr.Undefined
	}
	return v
}

// Refresh completes a transition whose scene was still loading. It reports
// whether anything changed.
func (g *Game) Refresh() bool {
	if !g.gs.Pending || g.Scene() == nil {
		return false
	}
	g.activate()
	g.emit()
	return true
}

// Choose activates the option at index in the current scene's declared
// option list. An ending offers a single option at index 0.
func (g *Game) Choose(index int) error {
	switch s := g.Scene().(type) {
	case nil:
		return fmt.Errorf("%w: scene %s is still loading", ErrOptionUnavailable, g.gs.Scene)
	case *scene.Ending:
		if index != 0 {
			return fmt.Errorf("%w: %d", ErrUnknownOption, index)
		}
		g.GoToScene(LinkEnd)
		return nil
	case *scene.Normal:
		if index < 0 || index >= len(s.Options) || s.Options[index].Separator {
			return fmt.Errorf("%w: %d", ErrUnknownOption, index)
		}
		opt := s.Options[index]
		at := g.gs.Scene
		visible, disabled := g.guards(opt)
		if g.gs.Scene != at {
			g.emit()
			return nil
		}
		if !visible || disabled {
			return fmt.Errorf("%w: %d", ErrOptionUnavailable, index)
		}
		defer g.emit()
		if opt.OnActivate != "" && !g.hook(opt.OnActivate, "option.onActivate") {
			return nil
		}
		if opt.To != "" {
			g.navigate(opt.To)
		}
		return nil
	default:
		return fmt.Errorf("unsupported scene type %T", s)
	}
}

func (g *Game) navigate(lnk string) {
	g.depth++
	defer func() { g.depth-- }()
	if g.depth > g.cfg.MaxDepth {
		g.fail(lnk, "goToScene", fmt.Errorf("navigation nested more than %d levels deep", g.cfg.MaxDepth))
		return
	}

	switch {
	case link.IsControl(lnk):
		g.control(lnk)
	case link.IsExternal(lnk):
		if g.cfg.OpenExternal != nil {
			g.cfg.OpenExternal(lnk)
		}
	default:
		g.transition(lnk)
	}
}

func (g *Game) control(token string) {
	switch token {
	case link.Null:
	case LinkUndo:
		g.undo()
	case LinkReload:
		g.scenes.Invalidate(g.gs.Scene)
	case LinkReset:
		g.reset("")
	case LinkEnd:
		g.end()
	case LinkResetAllProgress:
		for _, id := range g.endings.List() {
			g.endings.MarkNotAchieved(id)
		}
		g.reset("")
	default:
		g.fail(token, "goToScene", fmt.Errorf("unknown control link %q", token))
	}
}

// transition deactivates the current scene, moves to target and activates
// the new scene. A failing hook stops it where it is.
func (g *Game) transition(target string) {
	from := g.gs.Scene
	if !g.deactivateCurrent() {
		return
	}
	g.gs.PrevScene = from
	g.gs.Scene = link.Resolve(from, target, g.redirect)
	g.activate()
}

func (g *Game) deactivateCurrent() bool {
	id := g.gs.Scene
	if link.IsControl(id) || g.gs.Pending {
		return true
	}
	n, ok := g.scenes.GetScene(id).(*scene.Normal)
	if !ok {
		return true
	}
	if n.OnDeactivate != "" && !g.hook(n.OnDeactivate, "onDeactivate") {
		return false
	}
	if !g.gs.Departed.Has(id) {
		g.gs.Departed.Put(id)
		if n.OnFirstDeactivate != "" && !g.hook(n.OnFirstDeactivate, "onFirstDeactivate") {
			return false
		}
	}
	return true
}

func (g *Game) activate() {
	id := g.gs.Scene
	s := g.scenes.GetScene(id)
	if s == nil {
		g.gs.Pending = true
		return
	}
	g.gs.Pending = false
	first := !g.gs.Visited.Has(id)
	g.gs.Visited.Put(id)

	n, ok := s.(*scene.Normal)
	if !ok {
		return
	}
	if first && n.OnFirstActivate != "" && !g.hook(n.OnFirstActivate, "onFirstActivate") {
		return
	}
	if n.OnActivate != "" && !g.hook(n.OnActivate, "onActivate") {
		return
	}
	g.prefetch(id, n)
}

// hook runs a side-effecting script and reports whether the game is still on
// the same scene afterwards.
func (g *Game) hook(expression, source string) bool {
	at := g.gs.Scene
	if _, err := expr.Evaluate(expression, g); err != nil {
		g.fail(expression, source, err)
		return false
	}
	return g.gs.Scene == at
}

func (g *Game) redirect(id string) (string, bool) {
	if !scene.IsBuiltIn(id) {
		return "", false
	}
	s := g.scenes.GetScene(id)
	if s == nil {
		return "", false
	}
	return s.Common().Redirect()
}

func (g *Game) prefetch(id string, n *scene.Normal) {
	var ids []string
	for _, p := range n.PreloadScenes {
		ids = append(ids, link.Join(id, p))
	}
	for _, o := range n.Options {
		if o.Separator || o.To == "" || link.IsControl(o.To) || link.IsExternal(o.To) {
			continue
		}
		ids = append(ids, link.Join(id, o.To))
	}
	if len(ids) > 0 {
		g.scenes.Prefetch(ids...)
	}
}

func (g *Game) undo() {
	if g.gs.PrevScene == link.Null {
		return
	}
	if !g.deactivateCurrent() {
		return
	}
	g.gs.clearRuntimeError()
	g.gs.Scene, g.gs.PrevScene = g.gs.PrevScene, link.Null
	g.gs.Pending = false
}

func (g *Game) reset(id string) {
	if id == "" {
		id = g.cfg.StartScene
	}
	g.gs.clear(g.cfg.Title)
	g.navigate("/" + strings.TrimPrefix(id, "/"))
}

func (g *Game) end() {
	g.endings.MarkAchieved(g.gs.Scene)
	if g.endings.CountAchieved() == 1 {
		g.reset(g.cfg.FirstEndingScene)
		return
	}
	g.reset("")
}

func (g *Game) fail(expression, source string, err error) {
	at := g.gs.Scene
	g.lastErr = &RuntimeError{Scene: at, Source: source, Expression: expression, Err: err}
	g.cfg.Logger.Warn("Scene script failed",
		"scene_id", at,
		"source", source,
		"expression", expression,
		"error", err)

	g.gs.Vars[VarErrorSource] = expr.String(source)
	g.gs.Vars[VarErrorStack] = expr.String(err.Error())
	g.gs.Vars[VarErrorExpression] = expr.String(expression)
	if at != scene.RuntimeErrorID {
		g.gs.PrevScene = at
	}
	g.gs.Scene = scene.RuntimeErrorID
	g.gs.Pending = false
}
