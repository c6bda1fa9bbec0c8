package config

import "time"

// RateLimitConfig controls the fixed-window limiter applied to /api.
// Max requests are allowed per Window for each client IP.
type RateLimitConfig struct {
	Enabled bool
	Max     int64
	Window  time.Duration
	Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Max:     int64(envInt("RATE_LIMIT_MAX", 1000)),
		Window:  envDur("RATE_LIMIT_WINDOW", 15*time.Minute),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Max < 1 { cfg.Max = 1 }
	return cfg
}
