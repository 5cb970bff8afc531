// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	Env          string // application environment (dev, test, prod)
	Port         string // HTTP port to listen on
	DatabaseURI  string // mongodb://, mongodb+srv://, mysql:// or memory://
	DatabaseName string // Mongo database; empty means the URI path, else role_auth
	JWTSecret    string // secret used to sign tokens
	JWTAlgorithm string // HS256, HS384 or HS512
	BcryptCost   int    // 0 means bcrypt.DefaultCost
	LogLevel     string

	RabbitMQURL  string // empty disables user events
	EventsQueue  string
	AuditLogPath string

	Redis      RedisConfig
	TokenCache TokenCacheConfig
}

// EventsEnabled reports whether a broker is configured.
func (c Config) EventsEnabled() bool { return c.RabbitMQURL != "" }

// loader reads variables and remembers every problem, so one failed start
// reports all missing keys at once.
type loader struct {
	missing []string
	invalid []string
}

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.missing = append(l.missing, key)
		return ""
	}
	return v
}

func (l *loader) optionalInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.invalid = append(l.invalid, fmt.Sprintf("%s=%q", key, v))
		return def
	}
	return n
}

func (l *loader) err() error {
	var errs []error
	if len(l.missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required env vars: %s", strings.Join(l.missing, ", ")))
	}
	if len(l.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid env vars: %s", strings.Join(l.invalid, ", ")))
	}
	return errors.Join(errs...)
}

// Load reads .env (when present) and then the process environment.  The
// returned error lists every missing required variable.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var l loader
	cfg := Config{
		Env:          l.must("APP_ENV"),
		Port:         l.must("APP_PORT"),
		DatabaseURI:  l.must("DATABASE_URI"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		JWTSecret:    l.must("JWT_SECRET"),
		JWTAlgorithm: getenv("JWT_ALGORITHM", "HS256"),
		BcryptCost:   l.optionalInt("BCRYPT_COST", 0),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		RabbitMQURL:  firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		EventsQueue:  getenv("EVENTS_QUEUE", "user.events"),
		AuditLogPath: getenv("AUDIT_LOG_PATH", "logs/audit.log"),
		Redis:        LoadRedisConfig(),
		TokenCache:   LoadTokenCacheConfig(),
	}
	if err := l.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
