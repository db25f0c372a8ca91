package state_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/pkg/link"
	"github.com/jwebster45206/scene-engine/pkg/scene"
	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

// fakeRepo serves a fixed scene map plus the built-ins. IDs in pending look
// like they are still being fetched.
type fakeRepo struct {
	mu          sync.Mutex
	scenes      map[string]scene.Scene
	pending     map[string]bool
	invalidated []string
	prefetched  []string
}

func newFakeRepo(scenes map[string]scene.Scene) *fakeRepo {
	r := &fakeRepo{
		scenes:  scene.BuiltIns("story/one"),
		pending: make(map[string]bool),
	}
	for id, s := range scenes {
		r.scenes[id] = s
	}
	return r
}

func (r *fakeRepo) GetScene(id string) scene.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[id] {
		return nil
	}
	if s, ok := r.scenes[id]; ok {
		return s
	}
	return scene.NotFound(id)
}

func (r *fakeRepo) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, id)
}

func (r *fakeRepo) Prefetch(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefetched = append(r.prefetched, ids...)
}

func (r *fakeRepo) setPending(id string, pending bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = pending
}

func storyScenes() map[string]scene.Scene {
	return map[string]scene.Scene{
		"story/one": &scene.Normal{
			Base: scene.Base{
				Passage:         "Scene one.",
				OnFirstActivate: `log = "F"`,
				OnActivate:      `log = log || "A"`,
			},
			Options: []scene.Option{
				{Label: "Go to two", To: "two"},
				{Label: "Hidden", To: "two", IsVisible: "false"},
				{Label: "Locked", To: "two", IsDisabled: "true"},
				scene.SeparatorOption,
				{Label: "Give up", To: "end"},
			},
			OnDeactivate:      `leaves = (leaves == null ? 0 : leaves) + 1`,
			OnFirstDeactivate: `firstLeave = scene`,
		},
		"story/two": &scene.Normal{
			Base:    scene.Base{Passage: "Scene two."},
			Options: []scene.Option{{Label: "Back", To: "one"}},
		},
		"story/end": &scene.Ending{
			Title:       "The *End*",
			Description: "You gave up.",
		},
		"story/other-end": &scene.Ending{Title: "Another End"},
	}
}

func newTestGame(t *testing.T, scenes map[string]scene.Scene, cfg state.Config) (*state.Game, *fakeRepo, *storage.MemoryEndings) {
	t.Helper()
	repo := newFakeRepo(scenes)
	endings := storage.NewMemoryEndings()
	if cfg.StartScene == "" {
		cfg.StartScene = "story/one"
	}
	return state.New(repo, endings, cfg), repo, endings
}

func varString(g *state.Game, name string) string {
	v, _ := g.Get(name)
	return v.String()
}

func TestNew_StartsOnStartScene(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})

	gs := g.State()
	assert.Equal(t, "story/one", gs.Scene)
	assert.Equal(t, link.Null, gs.PrevScene)
	assert.Equal(t, scene.DefaultGameTitle, gs.Title)
	assert.True(t, gs.Visited.Has("story/one"))
	assert.Equal(t, "FA", varString(g, "log"))
}

func TestNew_DefaultsToBuiltInStart(t *testing.T) {
	repo := newFakeRepo(storyScenes())
	g := state.New(repo, storage.NewMemoryEndings(), state.Config{})

	assert.Equal(t, scene.StartID, g.State().Scene)
}

func TestActivationHooks_FirstVisitAndRevisit(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})

	require.NoError(t, g.Choose(0))
	assert.Equal(t, "story/two", g.State().Scene)
	assert.Equal(t, "story/one", g.State().PrevScene)
	assert.Equal(t, "1", varString(g, "leaves"))
	assert.Equal(t, "story/one", varString(g, "firstLeave"))
	assert.True(t, g.State().Departed.Has("story/one"))

	require.NoError(t, g.Choose(0))
	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, "FAA", varString(g, "log"), "revisit runs only onActivate")

	require.NoError(t, g.Choose(0))
	assert.Equal(t, "2", varString(g, "leaves"))
	assert.Equal(t, []string{"story/one", "story/two"}, g.State().Visited.IDs())
}

func TestUndo(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})
	require.NoError(t, g.Choose(0))

	g.GoToScene(state.LinkUndo)
	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, link.Null, g.State().PrevScene)
	assert.Equal(t, "FA", varString(g, "log"), "undo does not rerun activation hooks")

	g.GoToScene(state.LinkUndo)
	assert.Equal(t, "story/one", g.State().Scene, "undo without a previous scene is a no-op")
}

func TestUndo_RunsDeactivationHooks(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})
	require.NoError(t, g.Choose(0))
	require.NoError(t, g.Choose(0))
	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, "1", varString(g, "leaves"))

	g.GoToScene(state.LinkUndo)
	assert.Equal(t, "story/two", g.State().Scene)
	assert.Equal(t, link.Null, g.State().PrevScene)
	assert.Equal(t, "2", varString(g, "leaves"), "leaving by undo still counts as leaving")
	assert.Equal(t, "FAA", varString(g, "log"), "the restored scene is not reactivated")
}

func TestUndo_RestoresTitleFromCredits(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{Title: "My Story"})

	g.GoToScene("/" + scene.CreditsID)
	assert.Equal(t, "Credits", g.State().Title)

	g.GoToScene(state.LinkUndo)
	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, "My Story", g.State().Title)
}

func TestHookFailure_RoutesToRuntimeError(t *testing.T) {
	scenes := storyScenes()
	scenes["story/bad"] = &scene.Normal{
		Base:    scene.Base{OnActivate: "missing()"},
		Options: []scene.Option{},
	}
	g, _, _ := newTestGame(t, scenes, state.Config{})

	g.GoToScene("bad")

	gs := g.State()
	assert.Equal(t, scene.RuntimeErrorID, gs.Scene)
	assert.Equal(t, "story/bad", gs.PrevScene)
	assert.Equal(t, "missing()", varString(g, state.VarErrorExpression))
	assert.Equal(t, "onActivate", varString(g, state.VarErrorSource))
	assert.NotEmpty(t, varString(g, state.VarErrorStack))

	rerr := g.TakeError()
	require.NotNil(t, rerr)
	assert.Equal(t, "story/bad", rerr.Scene)
	assert.Nil(t, g.TakeError())

	g.GoToScene(state.LinkUndo)
	assert.Equal(t, "story/bad", gs.Scene)
	_, ok := gs.Vars[state.VarErrorExpression]
	assert.False(t, ok, "undo clears the error variables")
}

func TestDeactivateFailure_StaysPut(t *testing.T) {
	scenes := storyScenes()
	scenes["story/sticky"] = &scene.Normal{
		Base:         scene.Base{},
		Options:      []scene.Option{{Label: "Leave", To: "one"}},
		OnDeactivate: "nope()",
	}
	g, _, _ := newTestGame(t, scenes, state.Config{StartScene: "story/sticky"})

	require.NoError(t, g.Choose(0))
	assert.Equal(t, scene.RuntimeErrorID, g.State().Scene)
	assert.Equal(t, "story/sticky", g.State().PrevScene)
	assert.Equal(t, "onDeactivate", varString(g, state.VarErrorSource))
	assert.False(t, g.State().Visited.Has("story/one"))
}

func TestNavigationDepthLimit(t *testing.T) {
	scenes := storyScenes()
	scenes["story/loop"] = &scene.Normal{
		Base:    scene.Base{OnActivate: `goToScene("loop")`},
		Options: []scene.Option{},
	}
	g, _, _ := newTestGame(t, scenes, state.Config{MaxDepth: 4})

	g.GoToScene("loop")

	assert.Equal(t, scene.RuntimeErrorID, g.State().Scene)
	assert.Equal(t, "goToScene", varString(g, state.VarErrorSource))
}

func TestScriptNavigationFromHook(t *testing.T) {
	scenes := storyScenes()
	scenes["story/hop"] = &scene.Normal{
		Base:    scene.Base{OnActivate: `goToScene("two")`},
		Options: []scene.Option{},
	}
	g, _, _ := newTestGame(t, scenes, state.Config{})

	g.GoToScene("hop")

	assert.Equal(t, "story/two", g.State().Scene)
	assert.Equal(t, "story/hop", g.State().PrevScene)
}

func TestControlLinks(t *testing.T) {
	t.Run("null does nothing", func(t *testing.T) {
		g, _, _ := newTestGame(t, storyScenes(), state.Config{})
		g.GoToScene(link.Null)
		assert.Equal(t, "story/one", g.State().Scene)
	})

	t.Run("reload invalidates the current scene", func(t *testing.T) {
		g, repo, _ := newTestGame(t, storyScenes(), state.Config{})
		g.GoToScene(state.LinkReload)
		assert.Equal(t, []string{"story/one"}, repo.invalidated)
		assert.Equal(t, "FA", varString(g, "log"))
	})

	t.Run("unknown token fails", func(t *testing.T) {
		g, _, _ := newTestGame(t, storyScenes(), state.Config{})
		g.GoToScene("@bogus")
		assert.Equal(t, scene.RuntimeErrorID, g.State().Scene)
		assert.Equal(t, "@bogus", varString(g, state.VarErrorExpression))
	})

	t.Run("external links go to the callback", func(t *testing.T) {
		var opened []string
		g, _, _ := newTestGame(t, storyScenes(), state.Config{
			OpenExternal: func(url string) { opened = append(opened, url) },
		})
		g.GoToScene("https://example.com/about")
		assert.Equal(t, []string{"https://example.com/about"}, opened)
		assert.Equal(t, "story/one", g.State().Scene)
	})
}

func TestReset(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{Title: "My Story"})
	require.NoError(t, g.Choose(0))
	g.Eval(`title = "Changed"; gold = 5`, "test")
	require.Equal(t, "Changed", g.State().Title)

	g.Reset("")

	gs := g.State()
	assert.Equal(t, "story/one", gs.Scene)
	assert.Equal(t, link.Null, gs.PrevScene)
	assert.Equal(t, "My Story", gs.Title)
	assert.Equal(t, []string{"story/one"}, gs.Visited.IDs())
	assert.Equal(t, 0, gs.Departed.Len())
	_, ok := gs.Vars["gold"]
	assert.False(t, ok)
	assert.Equal(t, "FA", varString(g, "log"))
}

func TestPlayRedirectsToStory(t *testing.T) {
	repo := newFakeRepo(storyScenes())
	g := state.New(repo, storage.NewMemoryEndings(), state.Config{})
	require.Equal(t, scene.StartID, g.State().Scene)

	require.NoError(t, g.Choose(0))

	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, link.Null, g.State().PrevScene)
}

func TestEndings(t *testing.T) {
	g, _, endings := newTestGame(t, storyScenes(), state.Config{})

	require.NoError(t, g.Choose(4))
	require.Equal(t, "story/end", g.State().Scene)
	assert.ErrorIs(t, g.Choose(1), state.ErrUnknownOption)

	require.NoError(t, g.Choose(0))
	assert.True(t, endings.IsAchieved("story/end"))
	assert.Equal(t, scene.FirstEndingID, g.State().Scene, "first ending shows the introduction")
	assert.Equal(t, "true", varString(g, state.VarHasEnding))

	g.GoToScene("/story/other-end")
	require.NoError(t, g.Choose(0))
	assert.Equal(t, 2, endings.CountAchieved())
	assert.Equal(t, "story/one", g.State().Scene)
	assert.Equal(t, "2", varString(g, state.VarEndingCount))

	g.GoToScene("/" + scene.ResetProgressID)
	require.NoError(t, g.Choose(0))
	assert.Equal(t, 0, endings.CountAchieved())
	assert.Equal(t, "story/one", g.State().Scene)
}

func TestEndingFunctions(t *testing.T) {
	g, _, endings := newTestGame(t, storyScenes(), state.Config{})

	g.Eval(`setEndingAsAchieved("story/end")`, "test")
	assert.True(t, endings.IsAchieved("story/end"))
	assert.True(t, g.Eval(`isEndingAchieved("story/end")`, "test").Truthy())

	g.Eval(`setEndingAsNotAchieved("story/end")`, "test")
	assert.False(t, g.Eval(`isEndingAchieved("story/end")`, "test").Truthy())
	assert.True(t, g.Eval(`__internal_isBuiltInScene("built-in/start")`, "test").Truthy())
	assert.Equal(t, "story/one", g.State().Scene)
}

func TestEngineVariablesAreReadOnly(t *testing.T) {
	for _, e := range []string{`scene = "story/two"`, `prevScene = "x"`, `__internal_PRODUCTION = true`, `goToScene = 1`} {
		t.Run(e, func(t *testing.T) {
			g, _, _ := newTestGame(t, storyScenes(), state.Config{})
			g.Eval(e, "test")
			assert.Equal(t, scene.RuntimeErrorID, g.State().Scene)
			assert.Equal(t, "story/one", g.State().PrevScene)
		})
	}
}

func TestTitleAssignment(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})

	g.Eval(`title = "Chapter 1"`, "test")
	assert.Equal(t, "Chapter 1", g.State().Title)

	g.Eval(`title = null`, "test")
	assert.Equal(t, "", g.State().Title)
	assert.Equal(t, scene.DefaultGameTitle, g.View().Title)
}

func TestChoose_Errors(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})

	tests := []struct {
		name  string
		index int
		want  error
	}{
		{"negative", -1, state.ErrUnknownOption},
		{"out of range", 9, state.ErrUnknownOption},
		{"separator", 3, state.ErrUnknownOption},
		{"invisible", 1, state.ErrOptionUnavailable},
		{"disabled", 2, state.ErrOptionUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, g.Choose(tt.index), tt.want)
			assert.Equal(t, "story/one", g.State().Scene)
		})
	}
}

func TestChoose_OptionHookWithoutTarget(t *testing.T) {
	scenes := storyScenes()
	scenes["story/shop"] = &scene.Normal{
		Options: []scene.Option{{Label: "Buy", OnActivate: "gold = (gold == null ? 10 : gold) - 3"}},
	}
	g, _, _ := newTestGame(t, scenes, state.Config{StartScene: "story/shop"})

	require.NoError(t, g.Choose(0))
	require.NoError(t, g.Choose(0))
	assert.Equal(t, "story/shop", g.State().Scene)
	assert.Equal(t, "4", varString(g, "gold"))
}

func TestPendingSceneAndRefresh(t *testing.T) {
	g, repo, _ := newTestGame(t, storyScenes(), state.Config{})
	repo.setPending("story/two", true)

	require.NoError(t, g.Choose(0))
	assert.Equal(t, "story/two", g.State().Scene)
	assert.True(t, g.State().Pending)
	assert.Nil(t, g.Scene())
	assert.True(t, g.View().Loading)
	assert.False(t, g.Refresh())

	repo.setPending("story/two", false)
	assert.True(t, g.Refresh())
	assert.False(t, g.State().Pending)
	assert.True(t, g.State().Visited.Has("story/two"))
	assert.False(t, g.Refresh())
}

func TestPrefetchOnActivate(t *testing.T) {
	scenes := storyScenes()
	scenes["story/hub"] = &scene.Normal{
		Options: []scene.Option{
			{Label: "Two", To: "two"},
			{Label: "Undo", To: "@undo"},
			{Label: "Web", To: "https://example.com"},
		},
		PreloadScenes: []string{"../extra/x"},
	}
	g, repo, _ := newTestGame(t, scenes, state.Config{})

	g.GoToScene("hub")

	assert.Contains(t, repo.prefetched, "extra/x")
	assert.Contains(t, repo.prefetched, "story/two")
	assert.NotContains(t, repo.prefetched, "@undo")
}

func TestSubscribe(t *testing.T) {
	g, _, _ := newTestGame(t, storyScenes(), state.Config{})
	calls := 0
	unsubscribe := g.Subscribe(func() { calls++ })

	require.NoError(t, g.Choose(0))
	g.GoToScene(state.LinkUndo)
	g.Eval("x = 1", "test")
	assert.Equal(t, 2, calls)

	unsubscribe()
	g.GoToScene("two")
	assert.Equal(t, 2, calls)
}

func TestRestore_RunsNoHooks(t *testing.T) {
	g, repo, endings := newTestGame(t, storyScenes(), state.Config{})
	require.NoError(t, g.Choose(0))
	gs := g.State()

	restored := state.Restore(gs, repo, endings, state.Config{})

	assert.Equal(t, "story/two", restored.State().Scene)
	assert.Equal(t, "FA", varString(restored, "log"))
	require.NoError(t, restored.Choose(0))
	assert.Equal(t, "FAA", varString(restored, "log"))
}

func TestRuntimeError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &state.RuntimeError{Scene: "a/b", Source: "onActivate", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "at scene a/b during onActivate: boom", err.Error())
}
