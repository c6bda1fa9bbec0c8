package config

// This file builds the Redis client options for the catalog cache and the
// rate limiter.  Building options never dials: the cache facade connects
// lazily on first use and degrades to "no cache" when the server is down.

import (
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions returns client options derived from environment variables.
// Supported variables are:
//   REDIS_URL: redis:// or rediss:// URL (takes precedence over everything else)
//   REDIS_HOST and REDIS_PORT: hostname and port of the Redis server
//   REDIS_ADDR: host:port shorthand used when host/port are not both set
//   REDIS_PASSWORD: optional password
//   REDIS_DB: database number (default 0)
//   REDIS_TLS: enable TLS when "true" or "1"
// A malformed REDIS_URL yields nil so callers run without a cache.
func RedisOptions() *redis.Options {
	if url := envStr("REDIS_URL", ""); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil
		}
		return opt
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if v := envStr("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	}
}
