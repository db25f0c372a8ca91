package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scene backends
const (
	SceneBackendFile     = "file"
	SceneBackendPostgres = "postgres"
)

// Event backends
const (
	EventsBackendRedis = "redis"
	EventsBackendMQTT  = "mqtt"
	EventsBackendNone  = "none"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL   string
	SessionTTL time.Duration

	SceneBackend string
	ContentDir   string
	DatabaseURL  string

	EventsBackend string
	MQTTURL       string

	GameTitle        string
	StartScene       string
	StoryStart       string
	FirstEndingScene string
}

// fileConfig mirrors Config in the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Redis       struct {
		URL        string `yaml:"url"`
		SessionTTL string `yaml:"session_ttl"`
	} `yaml:"redis"`
	Scenes struct {
		Backend     string `yaml:"backend"`
		ContentDir  string `yaml:"content_dir"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"scenes"`
	Events struct {
		Backend string `yaml:"backend"`
		MQTTURL string `yaml:"mqtt_url"`
	} `yaml:"events"`
	Game struct {
		Title            string `yaml:"title"`
		StartScene       string `yaml:"start_scene"`
		StoryStart       string `yaml:"story_start"`
		FirstEndingScene string `yaml:"first_ending_scene"`
	} `yaml:"game"`
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file its values replace the built-in defaults; environment variables
// still win.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", or(fc.Redis.SessionTTL, "24h")))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	cfg := &Config{
		Port:             getEnv("PORT", or(fc.Port, "8080")),
		Environment:      getEnv("ENVIRONMENT", or(fc.Environment, "development")),
		LogLevel:         parseLogLevel(getEnv("LOG_LEVEL", or(fc.LogLevel, "info"))),
		RedisURL:         getEnv("REDIS_URL", or(fc.Redis.URL, "localhost:6379")),
		SessionTTL:       ttl,
		SceneBackend:     getEnv("SCENE_BACKEND", or(fc.Scenes.Backend, SceneBackendFile)),
		ContentDir:       getEnv("CONTENT_DIR", or(fc.Scenes.ContentDir, "./content")),
		DatabaseURL:      getEnv("DATABASE_URL", fc.Scenes.DatabaseURL),
		EventsBackend:    getEnv("EVENTS_BACKEND", or(fc.Events.Backend, EventsBackendRedis)),
		MQTTURL:          getEnv("MQTT_URL", or(fc.Events.MQTTURL, "tcp://localhost:1883")),
		GameTitle:        getEnv("GAME_TITLE", fc.Game.Title),
		StartScene:       getEnv("START_SCENE", fc.Game.StartScene),
		StoryStart:       getEnv("STORY_START", fc.Game.StoryStart),
		FirstEndingScene: getEnv("FIRST_ENDING_SCENE", fc.Game.FirstEndingScene),
	}

	switch cfg.SceneBackend {
	case SceneBackendFile, SceneBackendPostgres:
	default:
		return nil, fmt.Errorf("unknown SCENE_BACKEND %q", cfg.SceneBackend)
	}
	if cfg.SceneBackend == SceneBackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres scene backend")
	}
	switch cfg.EventsBackend {
	case EventsBackendRedis, EventsBackendMQTT, EventsBackendNone:
	default:
		return nil, fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.EventsBackend)
	}
	return cfg, nil
}

// Production reports whether the service runs in production. Scene scripts
// see it as __internal_PRODUCTION.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
