// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production deployments
// override through the CUSTODIA_* variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	HTTP     HTTPConfig
	Ledger   LedgerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
}

// HTTPConfig captures the HTTP server knobs.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LedgerConfig selects the partition mode and the bootstrap administrator.
type LedgerConfig struct {
	// Mode is "single" or "multi".
	Mode string
	// AdminAccount is the UUID granted the admin role at startup.
	AdminAccount string
}

// PostgresConfig carries the connection string for durable stores. Empty
// means in-memory stores only.
type PostgresConfig struct {
	DSN string
}

// RedisConfig carries go-redis client settings. An empty URL disables Redis
// and falls back to in-memory list storage.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries audit pipeline settings. Empty brokers disable the
// Kafka sink; audit events still go to the structured log.
type KafkaConfig struct {
	Brokers []string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
}

// FromEnv assembles a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            envOr("CUSTODIA_ADDR", ":8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Mode:         envOr("CUSTODIA_PARTITION_MODE", "multi"),
			AdminAccount: os.Getenv("CUSTODIA_ADMIN_ACCOUNT"),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("CUSTODIA_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CUSTODIA_REDIS_URL"),
			PoolSize:     envIntOr("CUSTODIA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CUSTODIA_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("CUSTODIA_KAFKA_BROKERS")),
		},
		Log: LogConfig{
			Level:  envOr("CUSTODIA_LOG_LEVEL", "info"),
			Format: envOr("CUSTODIA_LOG_FORMAT", "json"),
		},
	}

	if cfg.Ledger.Mode != "single" && cfg.Ledger.Mode != "multi" {
		return Config{}, fmt.Errorf("CUSTODIA_PARTITION_MODE must be single or multi, got %q", cfg.Ledger.Mode)
	}
	if cfg.Ledger.AdminAccount == "" {
		return Config{}, fmt.Errorf("CUSTODIA_ADMIN_ACCOUNT is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
