// Package config loads the daemon's YAML configuration and applies
// environment overrides, in the teacher's config.Load shape.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration: where bot configs live, where
// the bot-state database is, which venue endpoints to use, and how to log.
type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Venue  VenueConfig  `yaml:"venue"`
	Log    LogConfig    `yaml:"log"`
}

// DaemonConfig controls where persisted bot state lives and how often a
// running bot's actor steps its engine.
type DaemonConfig struct {
	DatabasePath   string `yaml:"database_path"`
	StepIntervalMs int    `yaml:"step_interval_ms"`
}

// VenueConfig carries the reference venue's HTTP/WebSocket base URLs.
// Credentials never live here — they come from the environment only
// (HYPERLIQUID_PRIVATE_KEY, HYPERLIQUID_ACCOUNT_ADDRESS), so a config file
// checked into a repo can never leak a wallet (§4.9, §6).
type VenueConfig struct {
	APIURL string `yaml:"api_url"`
	WSURL  string `yaml:"ws_url"`
}

// LogConfig controls slog's format and level.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path as YAML, applies a .env file if present (silently
// ignored if missing), then applies explicit environment overrides and
// fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// StepInterval returns the actor step pacing as a time.Duration.
func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.Daemon.StepIntervalMs) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BOT_STATE_DB"); v != "" {
		cfg.Daemon.DatabasePath = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		cfg.Venue.APIURL = v
	}
	if v := os.Getenv("WS_URL"); v != "" {
		cfg.Venue.WSURL = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Daemon.DatabasePath == "" {
		cfg.Daemon.DatabasePath = "tradecore.db"
	}
	if cfg.Daemon.StepIntervalMs <= 0 {
		cfg.Daemon.StepIntervalMs = 200
	}
	if cfg.Venue.APIURL == "" {
		cfg.Venue.APIURL = "https://api.hyperliquid.xyz"
	}
	if cfg.Venue.WSURL == "" {
		cfg.Venue.WSURL = "wss://api.hyperliquid.xyz/ws"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Wallet loads venue credentials from the process environment. Returning
// ok=false (either var unset, or either one malformed) is valid — only
// Live-mode bots require a wallet, and the bot registry / the venue
// adapter reject a nil wallet when a Live bot's engine is built, not here.
// The private key must be 64 hex chars and the address 40 hex chars, each
// with or without a 0x prefix.
func Wallet() (privateKeyHex, address string, ok bool) {
	privateKeyHex = os.Getenv("HYPERLIQUID_PRIVATE_KEY")
	address = os.Getenv("HYPERLIQUID_ACCOUNT_ADDRESS")
	if privateKeyHex == "" || address == "" {
		return privateKeyHex, address, false
	}
	if !isHex(trimHexPrefix(privateKeyHex), 64) || !isHex(trimHexPrefix(address), 40) {
		return privateKeyHex, address, false
	}
	return privateKeyHex, address, true
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func isHex(s string, wantLen int) bool {
	if len(s) != wantLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
