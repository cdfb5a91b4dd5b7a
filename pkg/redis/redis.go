package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ds124wfegd/afritix/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	})
}

// Connect creates a client and pings it with exponential backoff until
// maxElapsed passes.
func Connect(ctx context.Context, cfg *config.RedisConfig, maxElapsed time.Duration) (*redis.Client, error) {
	client := NewRedisClient(cfg)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	operation := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, next time.Duration) {
		logrus.WithError(err).WithField("retry_in", next).Warn("Redis not ready")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logrus.Info("Successfully connected to Redis")
	return client, nil
}
