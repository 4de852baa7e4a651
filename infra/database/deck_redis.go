// Package database opens the Redis connection the cross-tab broadcast
// medium publishes and subscribes on.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig sizes the sync connection. One session holds a single
// subscription plus short-lived publishers, so the pool stays small.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	IOTimeout    time.Duration
}

// SyncRedisConfig returns the settings for url with poolSize connections.
func SyncRedisConfig(url string, poolSize int) RedisConfig {
	if poolSize <= 0 {
		poolSize = 10
	}
	return RedisConfig{
		URL:          url,
		PoolSize:     poolSize,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		IOTimeout:    3 * time.Second,
	}
}

func (c RedisConfig) options() (*redis.Options, error) {
	opt, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = c.PoolSize
	opt.MinIdleConns = c.MinIdleConns
	opt.MaxRetries = c.MaxRetries
	opt.DialTimeout = c.DialTimeout
	opt.ReadTimeout = c.IOTimeout
	opt.WriteTimeout = c.IOTimeout
	return opt, nil
}

// NewRedis connects and pings within ctx. A client that cannot answer the
// ping is closed and never returned.
func NewRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opt, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// PoolStats is the connection pool snapshot reported by /ready.
type PoolStats struct {
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	Timeouts   uint32 `json:"timeouts"`
}

// PoolStatsOf reads the pool counters of client.
func PoolStatsOf(client *redis.Client) PoolStats {
	s := client.PoolStats()
	return PoolStats{TotalConns: s.TotalConns, IdleConns: s.IdleConns, Timeouts: s.Timeouts}
}
