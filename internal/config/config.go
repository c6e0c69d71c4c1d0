// Package config loads server settings from the environment.
//
// A .env file (if present) is loaded by main via godotenv before Load runs;
// Load then reads plain environment variables through viper, applies
// defaults, and validates the result.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MemoryDB selects the in-memory store instead of SQLite.
const MemoryDB = "memory"

// Config holds all server configuration.
type Config struct {
	Port          int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel      string        `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error fatal disabled"`
	ClientOrigin  string        `mapstructure:"client_origin" validate:"required"`
	DBPath        string        `mapstructure:"db_path" validate:"required"`
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=8"`
	CookieName    string        `mapstructure:"cookie_name" validate:"required"`
	Env           string        `mapstructure:"node_env"`
	DailySalt     string        `mapstructure:"daily_salt" validate:"required"`
	MismatchDelay time.Duration `mapstructure:"mismatch_delay" validate:"gt=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"gt=0"` // idle time before a player's session is dropped
}

// Production reports whether cookies and logging should use production settings.
func (c *Config) Production() bool { return c.Env == "production" }

// InMemory reports whether best scores are kept in memory only.
func (c *Config) InMemory() bool { return strings.EqualFold(c.DBPath, MemoryDB) }

var defaults = map[string]any{
	"port":           5175,
	"log_level":      "info",
	"client_origin":  "http://localhost:5173",
	"db_path":        "./data/concentration.db",
	"jwt_secret":     "dev_secret_change_me",
	"cookie_name":    "concentration_player",
	"node_env":       "development",
	"daily_salt":     "local_dev_salt",
	"mismatch_delay": "1s",
	"tick_interval":  "1s",
	"session_ttl":    "30m",
}

// Load reads configuration from environment variables (PORT, LOG_LEVEL,
// CLIENT_ORIGIN, DB_PATH, JWT_SECRET, COOKIE_NAME, NODE_ENV, DAILY_SALT,
// MISMATCH_DELAY, TICK_INTERVAL, SESSION_TTL).
func Load() (*Config, error) {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
