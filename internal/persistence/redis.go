package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
)

const redisConnectTimeout = 5 * time.Second

// Redis wraps the go-redis client and the key namespace shared by this process.
type Redis struct {
	Client    *redis.Client
	KeyPrefix string
}

// NewRedis connects to Redis using the provided configuration.
// A nil client is kept when no address is configured.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled() {
		logger.Warn("REDIS_ADDR not provided; intake sessions are kept in memory")
		return &Redis{KeyPrefix: cfg.KeyPrefix}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client, KeyPrefix: cfg.KeyPrefix}
}

// Enabled reports whether a client was created.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// SessionStore returns the Redis backed intake session store, or nil when Redis is
// not configured.
func (r *Redis) SessionStore(ttl time.Duration) *wizard.RedisStore {
	if !r.Enabled() {
		return nil
	}
	return wizard.NewRedisStore(r.Client, r.KeyPrefix, ttl)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
