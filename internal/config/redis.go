package config

// Redis backs the distributed rate limiter and the response cache. When
// the server cannot be reached at startup NewRedisClient returns nil and
// both middlewares degrade: the limiter falls back to an in-process
// bucket and the cache is bypassed.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TLS      bool   `toml:"tls"`
}

func applyRedisEnv(c *RedisConfig) {
	c.Enabled = envBool("REDIS_ENABLED", c.Enabled)
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		c.Addr = host + ":" + port
	} else {
		c.Addr = envStr("REDIS_ADDR", c.Addr)
	}
	c.Password = envStr("REDIS_PASSWORD", c.Password)
	c.DB = envInt("REDIS_DB", c.DB)
	c.TLS = envBool("REDIS_TLS", c.TLS)
}

// NewRedisClient connects and pings with a short timeout. It returns nil
// when redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
