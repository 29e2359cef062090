package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/schoolpoints/backend/internal/config"
)

// InitRedis returns a connected client, or nil when Redis is disabled or unreachable.
func InitRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("[REDIS] connection failed, continuing without idempotency cache", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("[REDIS] connection established", zap.String("addr", cfg.Host+":"+cfg.Port))
	return rdb
}
