package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"videotube/internal/config"
	"videotube/internal/repository"
	"videotube/internal/service"
)

// newRedisClient devuelve nil sin REDIS_ADDR. Si está configurado y no responde,
// el arranque falla: las réplicas no pueden divergir en dónde guardan estado.
func newRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// newRefreshTokenStore elige el store que indica TOKEN_STORE, sin alternativas.
func newRefreshTokenStore(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (service.RefreshTokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		if redisClient == nil {
			return nil, errors.New("TOKEN_STORE=redis but no redis client is configured")
		}
		return service.NewRedisRefreshTokenStore(redisClient), nil
	case config.TokenStorePostgres:
		return repository.NewPgRefreshTokenRepository(pool), nil
	}
	return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
}

// newToggleLimiter comparte el cupo entre réplicas cuando hay Redis.
func newToggleLimiter(logger *zap.Logger, cfg *config.Config, redisClient *redis.Client) service.ToggleRateLimiter {
	if redisClient != nil {
		return service.NewRedisToggleRateLimiter(logger, redisClient, cfg.ToggleRateWindow, cfg.ToggleRateLimit)
	}
	return service.NewToggleRateLimiter(cfg.ToggleRateWindow, cfg.ToggleRateLimit)
}
