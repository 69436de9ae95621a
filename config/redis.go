package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ConnectRedis establishes connection to Redis. A nil client means Redis is unavailable and
// callers fall back to in-process locking and no dashboard cache.
func ConnectRedis(cfg RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, using in-process agent locks")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn("Redis connection failed, using in-process agent locks", zap.Error(err))
		client.Close()
		return nil
	}

	logger.Info("connected to Redis", zap.String("addr", cfg.Addr))
	return client
}
