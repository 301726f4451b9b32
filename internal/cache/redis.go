// Package cache holds the Redis-backed pieces of the API: listing detail
// cache, operator auth cache and rate limit buckets.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName  = "campuskart-api"
	poolSize    = 20
	minIdle     = 2
	pingTimeout = 3 * time.Second
)

// Cache wraps the shared Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL (redis:// or rediss://) and verifies the connection.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}
	opt.ClientName = clientName
	opt.PoolSize = poolSize
	opt.MinIdleConns = minIdle
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client for stream consumers.
func (c *Cache) Client() *redis.Client {
	return c.client
}
