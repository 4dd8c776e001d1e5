// Package config loads server settings from defaults, an optional .env file
// and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/ws"
)

// Config is the complete chat server configuration.
type Config struct {
	Server       ws.ServerConfig
	RedisAddr    string
	NATSURL      string
	DatabaseURL  string // empty disables the archive
	ServerName   string
	HistoryLimit int
	LogLevel     string
	LogFormat    string // "text" or "json"
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	name, _ := os.Hostname()
	if name == "" {
		name = "chat-1"
	}
	return Config{
		Server:       ws.DefaultServerConfig(),
		RedisAddr:    "localhost:6379",
		NATSURL:      "nats://localhost:4222",
		ServerName:   name,
		HistoryLimit: chat.DefaultHistoryLimit,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads envFile (if it exists) into the environment and then builds the
// configuration from it. Variables already set in the environment win over
// the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv applies overrides from lookup onto Default. Every malformed value
// is reported.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs *multierror.Error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	positive := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s: want a positive integer, got %q", key, v))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s: want a duration, got %q", key, v))
			return
		}
		*dst = d
	}

	str("LISTEN_ADDR", &cfg.Server.ListenAddr)
	positive("WORKER_POOL_SIZE", &cfg.Server.WorkerPoolSize)
	positive("MAX_CONNECTIONS", &cfg.Server.MaxConnections)
	duration("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("NATS_URL", &cfg.NATSURL)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("SERVER_NAME", &cfg.ServerName)
	positive("HISTORY_LIMIT", &cfg.HistoryLimit)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = multierror.Append(errs, fmt.Errorf("LOG_FORMAT: want text or json, got %q", cfg.LogFormat))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ConfigureLogger applies the level and format to logger.
func (c Config) ConfigureLogger(logger *logrus.Logger) {
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// Fields returns the settings worth logging at startup. The database URL is
// reduced to whether the archive is enabled.
func (c Config) Fields() logrus.Fields {
	return logrus.Fields{
		"listen_addr":     c.Server.ListenAddr,
		"worker_pool":     c.Server.WorkerPoolSize,
		"max_connections": c.Server.MaxConnections,
		"read_timeout":    c.Server.ReadTimeout.String(),
		"write_timeout":   c.Server.WriteTimeout.String(),
		"redis_addr":      c.RedisAddr,
		"nats_url":        c.NATSURL,
		"archive":         c.DatabaseURL != "",
		"server_name":     c.ServerName,
		"history_limit":   c.HistoryLimit,
	}
}
