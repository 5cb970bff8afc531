package config

import (
	"os"
	"strconv"
	"time"
)

// TokenCacheConfig controls the Redis read-through cache in front of the
// token store.  The cache is only used when Enabled is set and Redis is
// reachable at startup.
type TokenCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

func LoadTokenCacheConfig() TokenCacheConfig {
	return TokenCacheConfig{
		Enabled: envBool("TOKEN_CACHE_ENABLED", false),
		TTL:     parseDur(getenv("TOKEN_CACHE_TTL", "5m")),
		Prefix:  getenv("TOKEN_CACHE_PREFIX", "tokens"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
