package redis

import (
	"context"

	"todoshi/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewClient connects to the configured redis. A nil client is returned when
// redis is unreachable; Cache treats that as "always miss".
func NewClient(ctx context.Context) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.WithError(err).Warn("Redis not available. Running without Redis.")
		_ = client.Close()
		return nil
	}

	logrus.WithField("component", "redis").Info("Redis connected successfully.")
	return client
}
