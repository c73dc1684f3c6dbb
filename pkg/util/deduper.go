package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time handler sees key within the TTL
// and false for duplicates. When Redis is unavailable it returns true; the
// audit table's unique event_id is the final guard.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, key string) bool {
	redisKey := fmt.Sprintf("dedup:%s:%s", handler, key)

	ok, err := d.rdb.SetNX(ctx, redisKey, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("dedup_key", redisKey),
		)
	}
	return ok
}

// Release forgets key so a redelivered message is processed again. Used
// when the handler fails after AcquireOnce succeeded.
func (d *Deduper) Release(ctx context.Context, handler string, key string) {
	redisKey := fmt.Sprintf("dedup:%s:%s", handler, key)
	if err := d.rdb.Del(ctx, redisKey).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("dedup_key", redisKey),
			zap.Error(err),
		)
	}
}
