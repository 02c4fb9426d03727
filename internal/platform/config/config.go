package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "github.com/Kakrote/udyam-registration-app/pkg/platform/strings"
)

// Cache backends for the location store.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string
	Version   string

	DatabaseURL  string
	CacheBackend string

	Redis    RedisConfig
	Upstream UpstreamConfig
	Audit    AuditConfig
}

// RedisConfig holds connection settings for the Redis location cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UpstreamConfig configures the public postal registry client.
type UpstreamConfig struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// AuditConfig configures audit publishing and its sinks.
type AuditConfig struct {
	BufferSize   int
	KafkaBrokers []string
	Topic        string
}

// Load reads an optional .env file and then builds the config from the
// environment. Variables already set in the environment win over .env.
func Load(files ...string) (Server, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Server{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:         getEnv("UDYAM_ADDR", ":5000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		Version:      getEnv("APP_VERSION", "1.0.0"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		CacheBackend: strings.ToLower(getEnv("LOCATION_CACHE_BACKEND", CacheBackendMemory)),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("PINCODE_API_URL", "https://api.postalpincode.in"), "/"),
		},
		Audit: AuditConfig{
			Topic: getEnv("AUDIT_TOPIC", "udyam.audit"),
		},
	}

	var err error
	if cfg.Redis.PoolSize, err = getInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = getDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Upstream.Timeout, err = getDuration("PINCODE_API_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Upstream.BreakerThreshold, err = getInt("UPSTREAM_BREAKER_THRESHOLD", 5); err != nil {
		return Server{}, err
	}
	if cfg.Upstream.BreakerCooldown, err = getDuration("UPSTREAM_BREAKER_COOLDOWN", 30*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Audit.BufferSize, err = getInt("AUDIT_BUFFER_SIZE", 1024); err != nil {
		return Server{}, err
	}
	cfg.Audit.KafkaBrokers = platformstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ",")

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LOCATION_CACHE_BACKEND=postgres requires DATABASE_URL")
		}
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("LOCATION_CACHE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown LOCATION_CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("PINCODE_API_TIMEOUT must be positive")
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
