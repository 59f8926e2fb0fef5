package ingest

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/redis"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// progressChannelPrefix namespaces one pub/sub channel per in-flight
// portfolio ingest on the ProgressDBIndex database.
const progressChannelPrefix = "ingest:progress:"

// RedisProgress publishes Events to a per-portfolio Redis pub/sub channel,
// letting any number of SSE subscribers observe the same ingest.
type RedisProgress struct {
	manager *redis.Manager
	logger  *zap.Logger
}

// NewRedisProgress creates a RedisProgress publisher.
func NewRedisProgress(manager *redis.Manager, logger *zap.Logger) *RedisProgress {
	return &RedisProgress{manager: manager, logger: logger.Named("ingest_progress")}
}

// Publish implements Progress.
func (r *RedisProgress) Publish(ctx context.Context, portfolioID uuid.UUID, event Event) error {
	client, err := r.manager.GetClient(redis.ProgressDBIndex)
	if err != nil {
		return fmt.Errorf("get progress redis client: %w", err)
	}

	payload, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	channel := progressChannelPrefix + portfolioID.String()

	cmd := client.B().Publish().Channel(channel).Message(string(payload)).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish progress event on %s: %w", channel, err)
	}

	return nil
}

// Channel returns the pub/sub channel name for one Portfolio's progress,
// for callers wiring an SSE handler to Subscribe on it.
func Channel(portfolioID uuid.UUID) string {
	return progressChannelPrefix + portfolioID.String()
}
