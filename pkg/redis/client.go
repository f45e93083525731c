package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/churnlab/pkg/config"
	"github.com/wonny/churnlab/pkg/logger"
)

// pingTimeout bounds the connection check in New
const pingTimeout = 3 * time.Second

// Client is the optional Redis connection behind the feature cache.
// A disabled client has no connection and every Cache call on it is a no-op.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb    *redis.Client
	addr   string
	logger *logger.Logger
}

// New connects to Redis when REDIS_ENABLED is set
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	log = log.WithField("component", "redis")
	if !cfg.Redis.Enabled {
		log.Debug("Redis disabled, feature cache off")
		return &Client{logger: log}, nil
	}

	addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: pingTimeout,
	})

	c := &Client{rdb: rdb, addr: addr, logger: log.WithField("addr", addr)}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}

	c.logger.WithField("db", cfg.Redis.DB).Info("Redis connected")
	return c, nil
}

// Ping checks the connection; a disabled client is always healthy
func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(pingCtx).Err()
}

// Close releases the connection pool
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("close redis %s: %w", c.addr, err)
	}
	c.logger.Debug("Redis connection closed")
	return nil
}

// Enabled reports whether a connection exists
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Redis exposes the go-redis client to the cache
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
