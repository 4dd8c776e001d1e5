package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 200, cfg.HistoryLimit)
	assert.Empty(t, cfg.DatabaseURL)
	assert.NotEmpty(t, cfg.ServerName)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"LISTEN_ADDR":      ":9090",
		"WORKER_POOL_SIZE": "32",
		"READ_TIMEOUT":     "3s",
		"DATABASE_URL":     "postgres://localhost/pookie?sslmode=disable",
		"HISTORY_LIMIT":    "50",
		"LOG_LEVEL":        "debug",
		"LOG_FORMAT":       "json",
		"SERVER_NAME":      "",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 32, cfg.Server.WorkerPoolSize)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NotEmpty(t, cfg.ServerName, "empty values keep the default")
	assert.Equal(t, true, cfg.Fields()["archive"])
}

func TestFromEnv_RejectsMalformed(t *testing.T) {
	_, err := FromEnv(lookupFrom(map[string]string{
		"WORKER_POOL_SIZE": "many",
		"MAX_CONNECTIONS":  "-1",
		"WRITE_TIMEOUT":    "10",
		"LOG_LEVEL":        "chatty",
		"LOG_FORMAT":       "xml",
	}))
	require.Error(t, err)
	for _, key := range []string{"WORKER_POOL_SIZE", "MAX_CONNECTIONS", "WRITE_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HISTORY_LIMIT=75\nNATS_URL=nats://file:4222\n"), 0o600))

	t.Setenv("NATS_URL", "nats://env:4222")
	os.Unsetenv("HISTORY_LIMIT")
	t.Cleanup(func() { os.Unsetenv("HISTORY_LIMIT") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.HistoryLimit)
	assert.Equal(t, "nats://env:4222", cfg.NATSURL, "environment wins over the file")
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestConfigureLogger(t *testing.T) {
	logger := logrus.New()
	Config{LogLevel: "warn", LogFormat: "json"}.ConfigureLogger(logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
