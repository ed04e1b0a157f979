package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig holds everything the client binaries need. Values come from the
// environment, optionally overlaid by a YAML file pointed at by CONFIG_FILE
// (env always wins over the file).
type AppConfig struct {
	ServerBaseURL string
	ServerWSURL   string

	PlayerID   string
	PlayerName string
	AuthToken  string

	RoomID string

	RedisURL    string
	DatabaseURL string

	ReconnectMaxAttempts int
	ReconnectDelay       time.Duration
	ClockStaleAfter      time.Duration

	MessageDir string
}

// Load reads configuration, applying defaults, the optional YAML overlay, and
// finally the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ReconnectMaxAttempts: 5,
		ReconnectDelay:       time.Second,
		ClockStaleAfter:      10 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("SERVER_BASE_URL")); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_WS_URL")); v != "" {
		cfg.ServerWSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PLAYER_ID")); v != "" {
		cfg.PlayerID = v
	}
	if v := strings.TrimSpace(os.Getenv("PLAYER_NAME")); v != "" {
		cfg.PlayerName = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_TOKEN")); v != "" {
		cfg.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOM_ID")); v != "" {
		cfg.RoomID = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReconnectMaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_DELAY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReconnectDelay = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_STALE_AFTER")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ClockStaleAfter = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGE_DIR")); v != "" {
		cfg.MessageDir = v
	}

	if cfg.ServerBaseURL == "" {
		return nil, errors.New("SERVER_BASE_URL is required")
	}
	if cfg.ServerWSURL == "" {
		return nil, errors.New("SERVER_WS_URL is required")
	}
	if cfg.PlayerName == "" {
		return nil, errors.New("PLAYER_NAME is required")
	}

	return cfg, nil
}

// fileConfig mirrors AppConfig with durations as strings so the YAML side can
// use "5s" style values.
type fileConfig struct {
	ServerBaseURL        string `yaml:"server_base_url"`
	ServerWSURL          string `yaml:"server_ws_url"`
	PlayerID             string `yaml:"player_id"`
	PlayerName           string `yaml:"player_name"`
	AuthToken            string `yaml:"auth_token"`
	RoomID               string `yaml:"room_id"`
	RedisURL             string `yaml:"redis_url"`
	DatabaseURL          string `yaml:"database_url"`
	ReconnectMaxAttempts *int   `yaml:"reconnect_max_attempts"`
	ReconnectDelay       string `yaml:"reconnect_delay"`
	ClockStaleAfter      string `yaml:"clock_stale_after"`
	MessageDir           string `yaml:"message_dir"`
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setIfNotEmpty(&cfg.ServerBaseURL, fc.ServerBaseURL)
	setIfNotEmpty(&cfg.ServerWSURL, fc.ServerWSURL)
	setIfNotEmpty(&cfg.PlayerID, fc.PlayerID)
	setIfNotEmpty(&cfg.PlayerName, fc.PlayerName)
	setIfNotEmpty(&cfg.AuthToken, fc.AuthToken)
	setIfNotEmpty(&cfg.RoomID, fc.RoomID)
	setIfNotEmpty(&cfg.RedisURL, fc.RedisURL)
	setIfNotEmpty(&cfg.DatabaseURL, fc.DatabaseURL)
	setIfNotEmpty(&cfg.MessageDir, fc.MessageDir)
	if fc.ReconnectMaxAttempts != nil && *fc.ReconnectMaxAttempts >= 0 {
		cfg.ReconnectMaxAttempts = *fc.ReconnectMaxAttempts
	}
	if d, err := time.ParseDuration(strings.TrimSpace(fc.ReconnectDelay)); err == nil && d > 0 {
		cfg.ReconnectDelay = d
	}
	if d, err := time.ParseDuration(strings.TrimSpace(fc.ClockStaleAfter)); err == nil && d > 0 {
		cfg.ClockStaleAfter = d
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}
