package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/internal/content"
	"github.com/jwebster45206/scene-engine/pkg/ftm"
	"github.com/jwebster45206/scene-engine/pkg/scene"
	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

func TestNextChoosable(t *testing.T) {
	options := []state.OptionView{
		{Index: 0, Disabled: true},
		{Index: -1, Separator: true},
		{Index: 2},
		{Index: 3},
	}

	tests := []struct {
		name     string
		from     int
		dir      int
		expected int
	}{
		{"first from nothing", -1, 1, 2},
		{"down", 2, 1, 3},
		{"down at end stays", 3, 1, 3},
		{"up skips disabled", 2, -1, 2},
		{"up", 3, -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nextChoosable(options, tt.from, tt.dir))
		})
	}
}

func TestNthOption(t *testing.T) {
	options := []state.OptionView{
		{Index: 0, Label: []ftm.Run{{Text: "A"}}},
		{Index: -1, Separator: true},
		{Index: 2, Label: []ftm.Run{{Text: "B"}}},
	}

	pos, ok := nthOption(options, 2)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = nthOption(options, 3)
	assert.False(t, ok)
}

func newTestUI(t *testing.T) ConsoleUI {
	t.Helper()
	scenes := map[string]scene.Scene{
		"story/one": &scene.Normal{
			Base: scene.Base{Passage: "Room **one**."},
			Options: []scene.Option{
				{Label: "Locked", To: "two", IsDisabled: "true"},
				{Label: "Walk", To: "two"},
			},
		},
		"story/two": &scene.Normal{
			Base:    scene.Base{Passage: "Room two.", OnFirstActivate: "steps = 1"},
			Options: []scene.Option{{Label: "Back", To: "one"}},
		},
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cache := content.NewCache(content.NewMapSource(scenes), "story/one", log)
	for id := range scenes {
		require.NotNil(t, cache.Load(context.Background(), id))
	}

	game := state.New(cache, storage.NewMemoryEndings(), state.Config{StartScene: "story/one", Title: "Test", Logger: log})
	ui := NewConsoleUI(&ConsoleConfig{ContentDir: "./content"}, game)
	model, _ := ui.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(ConsoleUI)
}

func TestConsoleUI_ChooseWithKeys(t *testing.T) {
	ui := newTestUI(t)
	assert.Equal(t, "story/one", ui.view.SceneID)
	assert.Equal(t, 1, ui.selected, "selection skips the disabled option")
	assert.Contains(t, ui.View(), "Room")

	model, _ := ui.Update(tea.KeyMsg{Type: tea.KeyEnter})
	ui = model.(ConsoleUI)
	assert.Equal(t, "story/two", ui.view.SceneID)
	assert.Equal(t, "1", ui.game.State().Vars["steps"].String())
	assert.True(t, strings.Contains(writeMetadata(ui.config, ui.game.State(), ui.view), "steps"))

	model, _ = ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	ui = model.(ConsoleUI)
	assert.Equal(t, "story/one", ui.view.SceneID)

	model, _ = ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	ui = model.(ConsoleUI)
	assert.Equal(t, "story/two", ui.view.SceneID)
}

func TestConsoleUI_QuitModal(t *testing.T) {
	ui := newTestUI(t)

	model, _ := ui.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	ui = model.(ConsoleUI)
	assert.True(t, ui.showQuitModal)
	assert.Contains(t, ui.View(), "Quit Game?")

	model, _ = ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	ui = model.(ConsoleUI)
	assert.False(t, ui.showQuitModal)

	model, _ = ui.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	ui = model.(ConsoleUI)
	_, cmd := ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
