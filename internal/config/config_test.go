package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "postgres://localhost/adcast?sslmode=disable")
	t.Setenv("JWT_SECRET", "supersecret")
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("HEARTBEAT_FLUSH_INTERVAL", "5s")
	t.Setenv("PLACEHOLDER_DURATION", "15")
	t.Setenv("TOKEN_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/adcast?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "supersecret", cfg.JWTSecret)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, 5*time.Second, cfg.Heartbeat.FlushInterval)
	assert.Equal(t, 15, cfg.Schedule.PlaceholderDuration)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	// untouched defaults survive
	assert.Equal(t, 10*time.Second, cfg.Push.PublishTimeout)
	assert.Equal(t, "06:00", cfg.Push.DailyRefreshAt)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
database_url: postgres://file/adcast
jwt_secret: from-file
push:
  default_message: "Hello lobby"
schedule:
  timezone: Europe/Berlin
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/adcast", cfg.DatabaseURL)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "Hello lobby", cfg.Push.DefaultMessage)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")

	cfg.DatabaseURL = "postgres://x"
	cfg.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Push.DailyRefreshAt = "25:00"
	assert.Error(t, cfg.Validate())
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("06:30")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("6am")
	assert.Error(t, err)
}
