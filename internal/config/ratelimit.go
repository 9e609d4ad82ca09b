package config

import "time"

// RateLimitConfig drives the token bucket in front of the auth endpoints.
// With redis available the bucket lives in redis; otherwise an
// in-process limiter with the same capacity and refill rate is used.
type RateLimitConfig struct {
	Enabled        bool          `toml:"enabled"`
	Capacity       int           `toml:"capacity"`
	RefillTokens   int           `toml:"refill_tokens"`
	RefillInterval time.Duration `toml:"refill_interval"`
	TTL            time.Duration `toml:"ttl"`
	KeyStrategy    string        `toml:"key_strategy"`
	Prefix         string        `toml:"prefix"`
	Debug          bool          `toml:"debug"`
}

func defaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "pms:rl",
	}
}

func applyRateLimitEnv(c *RateLimitConfig) {
	c.Enabled = envBool("RATE_LIMIT_ENABLED", c.Enabled)
	c.Capacity = envInt("RATE_LIMIT_CAPACITY", c.Capacity)
	c.RefillTokens = envInt("RATE_LIMIT_REFILL_TOKENS", c.RefillTokens)
	c.RefillInterval = envDur("RATE_LIMIT_REFILL_INTERVAL", c.RefillInterval)
	c.TTL = envDur("RATE_LIMIT_TTL", c.TTL)
	c.KeyStrategy = envStr("RATE_LIMIT_KEY_STRATEGY", c.KeyStrategy)
	c.Prefix = envStr("RATE_LIMIT_PREFIX", c.Prefix)
	c.Debug = envBool("RATE_LIMIT_DEBUG", c.Debug)
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
}

func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
