package services

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockAttempts = 3
	lockBackoff  = 100 * time.Millisecond
	lockTTL      = 10 * time.Second
)

// withLock runs fn while holding a Redis lock on key. The lock is tried a few
// times before giving up with ErrBusy.
func withLock(ctx context.Context, cache caching.CacheService, log *zap.Logger, key string, fn func() error) error {
	value := uuid.New().String()
	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := cache.AcquireLock(ctx, key, value, lockTTL)
		if err != nil {
			log.Error("failed to acquire lock", zap.String("key", key), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	if !acquired {
		return fmt.Errorf("lock %s: %w", key, models.ErrBusy)
	}

	defer func() {
		if err := cache.ReleaseLock(context.WithoutCancel(ctx), key, value); err != nil {
			log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}

// invalidateOrganization drops cached views after a committed write.
func invalidateOrganization(ctx context.Context, cache caching.CacheService, log *zap.Logger, orgID uuid.UUID) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateOrganization(ctx, orgID); err != nil {
		log.Warn("failed to invalidate cache", zap.String("organization_id", orgID.String()), zap.Error(err))
	}
}
