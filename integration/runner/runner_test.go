package runner

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/scene-engine/internal/content"
	"github.com/jwebster45206/scene-engine/internal/handlers"
	"github.com/jwebster45206/scene-engine/internal/services/events"
	"github.com/jwebster45206/scene-engine/internal/session"
	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

// newTestServer serves the bundled sample story.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := content.NewCache(content.NewFileSource(filepath.Join("..", "..", "content")), "", log)
	m := session.NewManager(storage.NewMockStorage(), cache, events.Nop{}, state.Config{}, log)

	mux := http.NewServeMux()
	h := handlers.NewGameHandler(m, nil, log)
	mux.Handle("/v1/games", h)
	mux.Handle("/v1/games/", h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunner_Cases(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL + "/")

	jobs, err := LoadTestSuiteWithExpansion(filepath.Join("..", "cases", "all.json"), filepath.Join("..", "cases"))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	menu, err := LoadTestSuite(filepath.Join("..", "cases", "main_menu.json"))
	require.NoError(t, err)
	jobs = append(jobs, TestJob{Name: menu.Name, Suite: menu})

	for _, job := range jobs {
		t.Run(job.Name, func(t *testing.T) {
			result, err := r.RunSuite(context.Background(), job.Suite)
			for _, step := range result.Results {
				assert.NoError(t, step.Error, "%s: passage %q", step.StepName, step.PassageText)
			}
			require.NoError(t, err)
			assert.Len(t, result.Results, len(job.Suite.Steps))
		})
	}
}

func TestRunner_ReportsFailedExpectations(t *testing.T) {
	srv := newTestServer(t)
	wrong := "story/nowhere"
	suite := TestSuite{
		Name: "wrong",
		Steps: []TestStep{
			{Name: "menu", Expectations: Expectations{Scene: &wrong}},
			{Name: "play", Choose: new(int), Expectations: Expectations{PassageContains: []string{"stone stair"}}},
		},
	}

	tests := []struct {
		name      string
		mode      ErrorHandlingMode
		wantSteps int
	}{
		{"continue runs every step", ErrorHandlingContinue, 2},
		{"exit stops at the first failure", ErrorHandlingExit, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(srv.URL)
			r.ErrorHandlingMode = tt.mode

			result, err := r.RunSuite(context.Background(), suite)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "expected scene story/nowhere, got built-in/start")
			require.Len(t, result.Results, tt.wantSteps)
			assert.False(t, result.Results[0].Success)
			if tt.wantSteps > 1 {
				assert.True(t, result.Results[1].Success)
			}
		})
	}
}

func TestCheckExpectations(t *testing.T) {
	yes := true
	game := &handlers.GameResponse{}
	game.View.SceneID = "story/a"

	tests := []struct {
		name    string
		exp     Expectations
		status  int
		wantErr string
	}{
		{"defaults to 200", Expectations{}, http.StatusOK, ""},
		{"status mismatch", Expectations{Status: http.StatusConflict}, http.StatusOK, "expected status 409"},
		{"runtime error missing", Expectations{RuntimeError: &yes}, http.StatusOK, "expected runtime_error true"},
		{"bad regex", Expectations{PassageRegex: "("}, http.StatusOK, "invalid regex"},
		{"options mismatch", Expectations{Options: []string{"Go"}}, http.StatusOK, "expected options [Go]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkExpectations(tt.exp, tt.status, game)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
