// Package config builds runtime configuration from the environment so main
// stays lean. Empty backend URLs select the in-process implementations.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// PostgresURL selects the Postgres-backed stores. Empty selects the
	// in-memory stores (single-instance, dev/test deployments).
	PostgresURL string

	// RedisURL selects the Redis-backed broadcaster for multi-instance
	// deployments. Empty selects the in-process broadcaster.
	RedisURL string

	// KafkaBrokers enables the durable activity mirror when non-empty.
	KafkaBrokers       string
	KafkaActivityTopic string

	// OverstaySweepInterval is how often the overstay monitor scans
	// checked-in visitors.
	OverstaySweepInterval time.Duration

	// OccupancyReconcileInterval is how often access-point occupancy is
	// recomputed from the visitor store as ground truth.
	OccupancyReconcileInterval time.Duration

	// BadgeMaxAttempts bounds badge regeneration on duplicate collisions.
	BadgeMaxAttempts int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:                       envOr("GATEHOUSE_ADDR", ":8080"),
		PostgresURL:                os.Getenv("POSTGRES_URL"),
		RedisURL:                   os.Getenv("REDIS_URL"),
		KafkaBrokers:               os.Getenv("KAFKA_BROKERS"),
		KafkaActivityTopic:         envOr("KAFKA_ACTIVITY_TOPIC", "gatehouse.activities"),
		OverstaySweepInterval:      envDuration("OVERSTAY_SWEEP_INTERVAL", time.Minute),
		OccupancyReconcileInterval: envDuration("OCCUPANCY_RECONCILE_INTERVAL", 5*time.Minute),
		BadgeMaxAttempts:           envInt("BADGE_MAX_ATTEMPTS", 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
