package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache on query routes.
// Methods lists the HTTP methods to cache. KeyStrategy determines which
// parts of the request contribute to the cache key. Successful writes
// bump a generation counter under Prefix so cached reads never outlive a
// change by more than one request.
type CacheConfig struct {
	Enabled      bool          `toml:"enabled"`
	Methods      []string      `toml:"methods"`
	TTL          time.Duration `toml:"ttl"`
	KeyStrategy  string        `toml:"key_strategy"`
	Prefix       string        `toml:"prefix"`
	MaxBodyBytes int           `toml:"max_body_bytes"`
}

func defaultCache() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		Methods:      []string{"GET"},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "pms:cache",
		MaxBodyBytes: 1 << 20,
	}
}

func applyCacheEnv(c *CacheConfig) {
	c.Enabled = envBool("CACHE_ENABLED", c.Enabled)
	if v := envStr("CACHE_METHODS", ""); v != "" {
		c.Methods = strings.Split(v, ",")
	}
	c.TTL = envDur("CACHE_TTL", c.TTL)
	c.KeyStrategy = envStr("CACHE_KEY_STRATEGY", c.KeyStrategy)
	c.Prefix = envStr("CACHE_PREFIX", c.Prefix)
	c.MaxBodyBytes = envInt("CACHE_MAX_BODY_BYTES", c.MaxBodyBytes)
}

// MethodSet returns the cached methods upper-cased.
func (c CacheConfig) MethodSet() map[string]bool {
	m := make(map[string]bool, len(c.Methods))
	for _, p := range c.Methods {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
