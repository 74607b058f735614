package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions carries the connection settings read from REDIS_URL or REDIS_ADDR.
type ClientOptions struct {
	Addr     string
	Username string
	Password string
	PoolSize int
}

// NewRedisClient connects and pings. Callers treat an empty Addr as "Redis disabled"
// and never reach this function.
func NewRedisClient(ctx context.Context, opts ClientOptions) (*redis.Client, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// Health adapts a client to the readiness probe.
type Health struct {
	client *redis.Client
}

func NewHealth(client *redis.Client) Health { return Health{client: client} }

func (h Health) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}
