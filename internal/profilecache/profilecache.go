// Package profilecache evicts cached StyleProfile derivations on the
// CacheDBIndex Redis database (spec.md's read-path caches StyleProfile and
// BanditState snapshots; this package owns invalidating the former). C3
// invalidates by Portfolio once a fresh ingest completes; C10 invalidates
// by user once a Delete or Critique FeedbackEvent lands, since either can
// change what a freshly-rendered profile would look like.
package profilecache

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "profile:cache:"

// Cache deletes the cached-profile key for a Portfolio or a user.
type Cache struct {
	manager *redis.Manager
	logger  *zap.Logger
}

// New creates a Cache.
func New(manager *redis.Manager, logger *zap.Logger) *Cache {
	return &Cache{manager: manager, logger: logger.Named("profile_cache")}
}

func (c *Cache) delete(ctx context.Context, key string) error {
	client, err := c.manager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return fmt.Errorf("get cache redis client: %w", err)
	}

	cmd := client.B().Del().Key(key).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete cache key %s: %w", key, err)
	}

	return nil
}

// PortfolioInvalidator implements ingest.ProfileInvalidator.
type PortfolioInvalidator struct{ Cache *Cache }

// Invalidate drops the cached profile derived from portfolioID.
func (p PortfolioInvalidator) Invalidate(ctx context.Context, portfolioID uuid.UUID) error {
	return p.Cache.delete(ctx, keyPrefix+"portfolio:"+portfolioID.String())
}

// UserInvalidator implements feedback.ProfileInvalidator.
type UserInvalidator struct{ Cache *Cache }

// Invalidate drops the cached profile marker for userID.
func (u UserInvalidator) Invalidate(ctx context.Context, userID string) error {
	return u.Cache.delete(ctx, keyPrefix+"user:"+userID)
}
