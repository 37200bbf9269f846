package cache

import (
	"context"
	"fmt"
	"time"

	"course-service/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis and checks the connection with a PING.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("addr", addr).Errorf("Redis ping failed: %v", err)
		return client, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.GetLogger().WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}
