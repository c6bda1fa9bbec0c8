package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig defines settings for the catalog cache.  When Enabled is false
// the cache facade never dials and every read goes to the primary store.
// TTL is the lifetime of cached catalog reads.  OpTimeout bounds a single
// round trip, ConnectTimeout bounds the lazy connect, and RetryAfter is how
// long a failed connect is remembered before the next attempt.
type CacheConfig struct {
	Enabled        bool
	TTL            time.Duration
	OpTimeout      time.Duration
	ConnectTimeout time.Duration
	RetryAfter     time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:        envBool("CACHE_ENABLED", true),
		TTL:            envDur("CACHE_TTL", 300*time.Second),
		OpTimeout:      envDur("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		ConnectTimeout: envDur("CACHE_CONNECT_TIMEOUT", 2*time.Second),
		RetryAfter:     envDur("CACHE_RETRY_AFTER", 30*time.Second),
	}
}

// Helper functions shared by redis.go and ratelimit.go.
func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" { return d }
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on": return true
	case "0", "false", "no", "off": return false
	}
	return d
}
func envInt(k string, d int) int {
	v := os.Getenv(k); if v == "" { return d }
	if n, err := strconv.Atoi(v); err == nil { return n }
	return d
}
func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k); if v == "" { return d }
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 { return dur }
	return d
}
