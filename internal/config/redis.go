package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client   *redis.Client
	HashSalt []byte
}

// ConnectRedis returns nil, nil when no Redis URL is configured; sessions
// then stay in memory.
func ConnectRedis(cfg *Config) (*RedisClient, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}

	if cfg.Redis.HashSalt == "" {
		return nil, fmt.Errorf("%sREDIS_HASHSALT not defined", EnvPrefix)
	}
	hashSalt := []byte(cfg.Redis.HashSalt)

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid %sREDIS_URL: %w", EnvPrefix, err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		Client:   client,
		HashSalt: hashSalt,
	}, nil
}
