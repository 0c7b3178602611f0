package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               int    `yaml:"port"`
	FeedURL            string `yaml:"feed_url"`
	FeedOrigin         string `yaml:"feed_origin"`
	DataDir            string `yaml:"data_dir"`
	SnapshotDebounceMS int    `yaml:"snapshot_debounce_ms"`
	LogLevel           string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Port:               8090,
		FeedURL:            "wss://socket.haremaltin.com/socket",
		FeedOrigin:         "https://canlipiyasalar.haremaltin.com",
		DataDir:            "./data",
		SnapshotDebounceMS: 1000,
		LogLevel:           "info",
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// Validation & normalization
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.New("invalid port")
	}
	if strings.TrimSpace(cfg.FeedURL) == "" {
		return cfg, errors.New("feed_url required")
	}
	if cfg.SnapshotDebounceMS < 0 {
		return cfg, errors.New("snapshot_debounce_ms must be >=0")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return cfg, errors.New("data_dir required")
	}
	return cfg, nil
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
