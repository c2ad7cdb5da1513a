package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config holds process-wide settings
type Config struct {
	Environment    string          `koanf:"environment"`
	ServerAddress  string          `koanf:"server_address"`
	JWTSecret      string          `koanf:"jwt_secret"`
	DatabaseURL    string          `koanf:"database_url"`
	MigrationsPath string          `koanf:"migrations_path"`
	Auth           AuthConfig      `koanf:"auth"`
	Log            LogConfig       `koanf:"log"`
	Redis          RedisConfig     `koanf:"redis"`
	MQTT           MQTTConfig      `koanf:"mqtt"`
	Storage        StorageConfig   `koanf:"storage"`
	Push           PushConfig      `koanf:"push"`
	Heartbeat      HeartbeatConfig `koanf:"heartbeat"`
	Schedule       ScheduleConfig  `koanf:"schedule"`
}

// AuthConfig holds the bcrypt hash of the operator key exchanged for admin tokens.
type AuthConfig struct {
	OperatorKeyHash string        `koanf:"operator_key_hash"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type MQTTConfig struct {
	BrokerURL      string        `koanf:"broker_url"`
	ClientID       string        `koanf:"client_id"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// StorageConfig selects the URL resolver: local files or DigitalOcean Spaces.
type StorageConfig struct {
	UseSpaces       bool          `koanf:"use_spaces"`
	LocalBaseURL    string        `koanf:"local_base_url"`
	SpacesEndpoint  string        `koanf:"spaces_endpoint"`
	SpacesRegion    string        `koanf:"spaces_region"`
	SpacesBucket    string        `koanf:"spaces_bucket"`
	SpacesAccessKey string        `koanf:"spaces_access_key"`
	SpacesSecretKey string        `koanf:"spaces_secret_key"`
	PresignTTL      time.Duration `koanf:"presign_ttl"`
	ResolveTimeout  time.Duration `koanf:"resolve_timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerOpenFor  time.Duration `koanf:"breaker_open_for"`
}

type PushConfig struct {
	PublishTimeout time.Duration `koanf:"publish_timeout"`
	MaxConcurrent  int           `koanf:"max_concurrent"`
	DefaultMessage string        `koanf:"default_message"`
	DailyRefreshAt string        `koanf:"daily_refresh_at"`
	DailyRefreshOn bool          `koanf:"daily_refresh_enabled"`
}

type HeartbeatConfig struct {
	FlushInterval time.Duration `koanf:"flush_interval"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	MaxConcurrent int           `koanf:"max_concurrent"`
}

type ScheduleConfig struct {
	Timezone            string `koanf:"timezone"`
	PlaceholderDuration int    `koanf:"placeholder_duration"`
}

func defaultConfig() *Config {
	return &Config{
		Environment:    "development",
		ServerAddress:  ":8080",
		MigrationsPath: "./migrations",
		Auth:           AuthConfig{TokenTTL: 12 * time.Hour},
		Log:            LogConfig{Level: "info", Format: "json"},
		Redis:          RedisConfig{Address: "localhost:6379"},
		MQTT: MQTTConfig{
			BrokerURL:      "tcp://0.0.0.0:1883",
			ClientID:       "adcast-server",
			ConnectTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			LocalBaseURL:    "http://localhost:8080/uploads",
			PresignTTL:      6 * time.Hour,
			ResolveTimeout:  5 * time.Second,
			BreakerFailures: 5,
			BreakerOpenFor:  30 * time.Second,
		},
		Push: PushConfig{
			PublishTimeout: 10 * time.Second,
			MaxConcurrent:  8,
			DefaultMessage: "Welcome!",
			DailyRefreshAt: "06:00",
			DailyRefreshOn: true,
		},
		Heartbeat: HeartbeatConfig{
			FlushInterval: 30 * time.Second,
			WriteTimeout:  5 * time.Second,
			MaxConcurrent: 16,
		},
		Schedule: ScheduleConfig{
			Timezone:            "UTC",
			PlaceholderDuration: 10,
		},
	}
}

// Load reads defaults, then an optional YAML file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"app_env":                  "environment",
	"server_address":           "server_address",
	"jwt_secret":               "jwt_secret",
	"database_url":             "database_url",
	"migrations_path":          "migrations_path",
	"operator_key_hash":        "auth.operator_key_hash",
	"token_ttl":                "auth.token_ttl",
	"log_level":                "log.level",
	"log_format":               "log.format",
	"redis_address":            "redis.address",
	"redis_username":           "redis.username",
	"redis_password":           "redis.password",
	"mqtt_broker_url":          "mqtt.broker_url",
	"mqtt_client_id":           "mqtt.client_id",
	"mqtt_username":            "mqtt.username",
	"mqtt_password":            "mqtt.password",
	"mqtt_connect_timeout":     "mqtt.connect_timeout",
	"use_spaces":               "storage.use_spaces",
	"local_base_url":           "storage.local_base_url",
	"spaces_endpoint":          "storage.spaces_endpoint",
	"spaces_region":            "storage.spaces_region",
	"spaces_bucket":            "storage.spaces_bucket",
	"spaces_access_key":        "storage.spaces_access_key",
	"spaces_secret_key":        "storage.spaces_secret_key",
	"presign_ttl":              "storage.presign_ttl",
	"resolve_timeout":          "storage.resolve_timeout",
	"publish_timeout":          "push.publish_timeout",
	"push_max_concurrent":      "push.max_concurrent",
	"default_scroll_message":   "push.default_message",
	"daily_refresh_at":         "push.daily_refresh_at",
	"daily_refresh_enabled":    "push.daily_refresh_enabled",
	"heartbeat_flush_interval": "heartbeat.flush_interval",
	"heartbeat_write_timeout":  "heartbeat.write_timeout",
	"schedule_timezone":        "schedule.timezone",
	"placeholder_duration":     "schedule.placeholder_duration",
}

// envTransformFunc maps known variables to config paths and drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MQTT.BrokerURL == "" {
		errs = append(errs, errors.New("MQTT_BROKER_URL is required"))
	}
	if c.Heartbeat.FlushInterval <= 0 {
		errs = append(errs, errors.New("heartbeat flush interval must be positive"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.Push.PublishTimeout <= 0 {
		errs = append(errs, errors.New("publish timeout must be positive"))
	}
	if c.Schedule.PlaceholderDuration < 0 {
		errs = append(errs, errors.New("placeholder duration must not be negative"))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid schedule timezone %q: %w", c.Schedule.Timezone, err))
	}
	if _, _, err := ParseClock(c.Push.DailyRefreshAt); err != nil {
		errs = append(errs, fmt.Errorf("invalid daily refresh time: %w", err))
	}
	if c.Storage.UseSpaces && (c.Storage.SpacesBucket == "" || c.Storage.SpacesEndpoint == "") {
		errs = append(errs, errors.New("SPACES_BUCKET and SPACES_ENDPOINT are required when USE_SPACES=true"))
	}
	return errors.Join(errs...)
}

// Location returns the schedule timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
