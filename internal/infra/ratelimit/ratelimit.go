// Package ratelimit throttles the public submission intake per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/formcraft-io/formcraft/internal/config"
	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow reports whether one more request for key fits in the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

// New picks the backend named by cfg.RateLimit.Backend. It returns (nil, nil) when rate limiting is off.
func New(cfg *config.Config, rdb *redis.Client) (Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	window := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	requests := cfg.RateLimit.Requests
	if requests <= 0 {
		requests = 30
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis client")
		}
		return NewRedisLimiter(rdb, requests, window), nil
	case "local", "":
		return NewLocalLimiter(requests, window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}
