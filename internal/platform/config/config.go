// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "addongate/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// Identity provider.
	ProviderURL     string
	ProviderTimeout time.Duration

	// Admin credentials. AdminToken is the static header credential;
	// AdminPasswordHash is a bcrypt hash checked by the login endpoint.
	AdminToken        string
	AdminPasswordHash string
	JWTSigningKey     string
	AdminSessionTTL   time.Duration

	// Storage. Empty URLs fall back to in-memory stores.
	PostgresURL string
	RedisURL    string

	// Audit. Empty means audit events are discarded.
	KafkaBrokers []string
	AuditTopic   string

	// Grant sweeping.
	SweepInterval time.Duration

	// Authorized-config bundle file.
	BundlePath string

	// Rate limiting.
	RateLimitDisabled bool
}

// Redis holds connection tuning for the optional Redis grant store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables with development
// defaults.
func FromEnv() Server {
	cfg := Server{
		Addr:              getEnv("ADDONGATE_ADDR", ":8080"),
		ProviderURL:       getEnv("PROVIDER_URL", "https://api.strem.io/api/datastoreGet"),
		ProviderTimeout:   getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSigningKey:     getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminSessionTTL:   getDuration("ADMIN_SESSION_TTL", 1*time.Hour),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AuditTopic:        getEnv("AUDIT_TOPIC", "addongate.audit"),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 1*time.Hour),
		BundlePath:        getEnv("BUNDLE_PATH", "data/config.json"),
		RateLimitDisabled: os.Getenv("RATE_LIMIT_DISABLED") == "true",
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}

	return cfg
}

// RedisFromEnv builds Redis connection settings with production-leaning pool
// defaults.
func RedisFromEnv() Redis {
	return Redis{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     getInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	return strutil.DedupeAndTrim(strings.Split(s, ","))
}
