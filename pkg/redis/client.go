package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SHARED COUNTERS IN REDIS

type Client struct {
	client *redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int

	// ConnectTimeout bounds the retried ping on startup.
	ConnectTimeout time.Duration
}

// New creates a client without checking the connection.
func New(addr, password string, db int) *Client {
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     20,
			MinIdleConns: 2,
		}),
	}
}

// Connect creates a client and pings it with exponential backoff until it
// answers or ConnectTimeout elapses.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	const operation = "redis.Connect"

	c := New(opts.Addr, opts.Password, opts.DB)

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = opts.ConnectTimeout
	if retryPolicy.MaxElapsedTime <= 0 {
		retryPolicy.MaxElapsedTime = 30 * time.Second
	}
	retryPolicy.MaxInterval = 5 * time.Second

	logger.Info("Connecting to Redis...", zap.String("addr", opts.Addr))

	err := backoff.RetryNotify(
		func() error {
			return c.Ping(ctx)
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("Redis connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	logger.Info("Successfully connected to Redis")
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Expire sets a key's time to live (TTL)
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	return c.client.Expire(ctx, key, expiration).Result()
}

// Incr increments the key's value by 1. Returns the new value and any error
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// IncrWindow counts a hit in a fixed window. The window starts with the
// first hit and the key expires when it ends.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// Set expiry if this is the first increment
	if count == 1 {
		if _, err := c.Expire(ctx, key, window); err != nil {
			return 0, fmt.Errorf("failed to set counter window: %w", err)
		}
	}
	return count, nil
}

// Close closes the Redis connection
func (c *Client) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}
