package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/config"
)

const redisStartupPing = 2 * time.Second

// Redis owns the connection behind write replay protection. The API stays up
// when Redis is down; IdempotencyMiddleware then lets writes through.
type Redis struct {
	client         *redis.Client
	idempotencyTTL time.Duration
}

// NewRedis opens a client for cfg and probes it once, bounded by a short timeout.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	r := &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		idempotencyTTL: cfg.IdempotencyTTL(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisStartupPing)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("unable to reach redis; write endpoints will run without replay protection",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("idempotency store ready",
			zap.String("addr", cfg.Addr),
			zap.Int("db", cfg.DB),
			zap.Duration("ttl", r.idempotencyTTL))
	}
	return r
}

// IdempotencyStore returns the replay store on this connection.
func (r *Redis) IdempotencyStore(opts ...IdempotencyOption) *IdempotencyStore {
	opts = append([]IdempotencyOption{WithIdempotencyTTL(r.idempotencyTTL)}, opts...)
	return NewIdempotencyStore(r.client, opts...)
}

// Ping backs the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
