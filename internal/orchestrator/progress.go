package orchestrator

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/redis"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// progressChannelPrefix namespaces one pub/sub channel per in-flight
// /generate request on the ProgressDBIndex database.
const progressChannelPrefix = "generate:progress:"

// RedisProgress publishes Events to a per-user Redis pub/sub channel,
// letting any number of SSE subscribers observe the same generation run.
type RedisProgress struct {
	manager *redis.Manager
	logger  *zap.Logger
}

// NewRedisProgress creates a RedisProgress publisher.
func NewRedisProgress(manager *redis.Manager, logger *zap.Logger) *RedisProgress {
	return &RedisProgress{manager: manager, logger: logger.Named("orchestrator_progress")}
}

// Publish implements Progress.
func (r *RedisProgress) Publish(ctx context.Context, userID string, event Event) error {
	client, err := r.manager.GetClient(redis.ProgressDBIndex)
	if err != nil {
		return fmt.Errorf("get progress redis client: %w", err)
	}

	payload, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	channel := Channel(userID)

	cmd := client.B().Publish().Channel(channel).Message(string(payload)).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish progress event on %s: %w", channel, err)
	}

	return nil
}

// Channel returns the pub/sub channel name for one user's in-flight
// generation request, for callers wiring an SSE handler to Subscribe on it.
func Channel(userID string) string {
	return progressChannelPrefix + userID
}
