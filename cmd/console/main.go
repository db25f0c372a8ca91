package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/scene-engine/internal/content"
	"github.com/jwebster45206/scene-engine/internal/logger"
	"github.com/jwebster45206/scene-engine/pkg/state"
	"github.com/jwebster45206/scene-engine/pkg/storage"
)

type ConsoleConfig struct {
	APIBaseURL string // remote content endpoint; empty plays from ContentDir
	ContentDir string
	StartScene string
	StoryStart string
	Title      string
	Timeout    time.Duration
}

// sender lets state callbacks reach the running program. They fire inside
// Update, so messages are sent from a new goroutine.
type sender struct {
	p *tea.Program
}

func (s *sender) send(msg tea.Msg) {
	if s.p != nil {
		go s.p.Send(msg)
	}
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", ""),
		ContentDir: getEnv("CONTENT_DIR", "./content"),
		StartScene: getEnv("START_SCENE", ""),
		StoryStart: getEnv("STORY_START", ""),
		Title:      getEnv("GAME_TITLE", ""),
		Timeout:    30 * time.Second,
	}

	// The alt screen owns stdout; scene cache diagnostics go to stderr.
	log := logger.New(os.Stderr, slog.LevelError, false)

	source, err := newSource(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	out := &sender{}
	scenes := content.NewCache(source, cfg.StoryStart, log)
	unsubscribe := scenes.Subscribe(func(id string) {
		out.send(sceneLoadedMsg{id: id})
	})
	defer unsubscribe()

	game := state.New(scenes, storage.NewMemoryEndings(), state.Config{
		StartScene: cfg.StartScene,
		Title:      cfg.Title,
		Logger:     log,
		OpenExternal: func(url string) {
			out.send(externalLinkMsg{url: url})
		},
	})

	p := tea.NewProgram(NewConsoleUI(cfg, game),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	out.p = p
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func newSource(cfg *ConsoleConfig) (content.Source, error) {
	if cfg.APIBaseURL == "" {
		if _, err := os.Stat(cfg.ContentDir); err != nil {
			return nil, fmt.Errorf("content directory %s is not readable: %w", cfg.ContentDir, err)
		}
		return content.NewFileSource(cfg.ContentDir), nil
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if !testConnection(client, cfg.APIBaseURL) {
		return nil, fmt.Errorf("could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d", cfg.APIBaseURL)
	}
	return content.NewHTTPSource(cfg.APIBaseURL, client), nil
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
