package database

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ConnectRedis 建立 Redis 連線，作為關聯式後端的即時通道。
// 用戶端會自動重連，ping 失敗只記錄警告。
func ConnectRedis(ctx context.Context, addr string, log zerolog.Logger) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("connect to redis: REDIS_ADDR is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, continuing without it")
	} else {
		log.Info().Str("addr", addr).Msg("Connected to Redis")
	}
	return client, nil
}
