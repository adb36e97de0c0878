package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Engine
	EngineURL   string `yaml:"engine_url"`
	EngineToken string `yaml:"engine_token"`

	// Server
	ServerPort string `yaml:"server_port"`

	// Database (optional; empty disables history persistence)
	DatabaseURL string `yaml:"database_url"`

	// Cache
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	// Monitor
	PollInterval    time.Duration `yaml:"poll_interval"`
	ReconnectBase   time.Duration `yaml:"reconnect_base"`
	ReconnectMax    time.Duration `yaml:"reconnect_max"`
	MaxPollFailures int           `yaml:"max_poll_failures"`

	// Playback
	ModelCacheDir string `yaml:"model_cache_dir"`
	TotalFrames   int    `yaml:"total_frames"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := &Config{
		EngineURL:       "http://localhost:9000",
		ServerPort:      "8080",
		CacheMaxEntries: 64,
		CacheTTL:        30 * time.Minute,
		PollInterval:    2 * time.Second,
		ReconnectBase:   5 * time.Second,
		ReconnectMax:    60 * time.Second,
		MaxPollFailures: 5,
		ModelCacheDir:   ".simgateway/models",
		TotalFrames:     240,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.EngineURL = getEnv("ENGINE_URL", cfg.EngineURL)
	cfg.EngineToken = getEnv("ENGINE_TOKEN", cfg.EngineToken)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ModelCacheDir = getEnv("MODEL_CACHE_DIR", cfg.ModelCacheDir)
	if v := os.Getenv("CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheMaxEntries = n
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
