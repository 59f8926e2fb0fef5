// Package feedback implements C10: turning explicit and implicit
// FeedbackEvents into reward updates against C5's bandit posteriors and
// C6's RLHF weights, serialized per user and processed off the serving
// path via a bounded worker pool.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrGenerationNotOwned is returned when a FeedbackEvent targets a
// Generation that does not belong to the submitting user.
var ErrGenerationNotOwned = errors.New("feedback: generation not owned by user")

// ErrEmptyCritiqueResponse is returned when the critique-parsing LLM call
// returns no content.
var ErrEmptyCritiqueResponse = errors.New("feedback: empty critique parse response")

// critiqueReward is the magnitude applied to an add-delta token; remove
// deltas apply the same magnitude negated.
const critiqueReward = 0.3

// EventStore persists FeedbackEvents with replay rejection.
type EventStore interface {
	// TryAppend inserts event, reporting inserted=false when event.ID was
	// already processed.
	TryAppend(ctx context.Context, event *types.FeedbackEvent) (inserted bool, err error)
}

// GenerationLookup resolves a Generation by id.
type GenerationLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*types.Generation, error)
}

// PromptLookup resolves a PromptSpec by id.
type PromptLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*types.PromptSpec, error)
}

// BanditUpdater applies a reward to one (slot, value) posterior.
type BanditUpdater interface {
	Update(ctx context.Context, userID string, slot enum.AttributeSlot, value string, reward float64) error
}

// RLHFUpdater applies rewards to (category, token) weights.
type RLHFUpdater interface {
	Reward(ctx context.Context, userID string, category enum.RLHFCategory, token string, kind enum.FeedbackKind, impressionMS int) error
	ApplyRaw(ctx context.Context, userID string, category enum.RLHFCategory, token string, reward float64) error
}

// ProfileInvalidator evicts cached StyleProfile derivations for a user.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Processor is the C10 component.
type Processor struct {
	events      EventStore
	generations GenerationLookup
	prompts     PromptLookup
	bandit      BanditUpdater
	rlhf        RLHFUpdater
	critique    CritiqueParser
	invalidator ProfileInvalidator
	logger      *zap.Logger

	queue chan *types.FeedbackEvent
	locks keyedMutex
	wg    sync.WaitGroup
}

// New creates a Processor and starts workerCount background workers
// draining its bounded queue. Close stops them.
func New(
	events EventStore, generations GenerationLookup, prompts PromptLookup,
	bandit BanditUpdater, rlhf RLHFUpdater, critique CritiqueParser, invalidator ProfileInvalidator,
	workerCount, queueDepth int, logger *zap.Logger,
) *Processor {
	if workerCount < 1 {
		workerCount = 1
	}

	if queueDepth < 1 {
		queueDepth = 1
	}

	p := &Processor{
		events:      events,
		generations: generations,
		prompts:     prompts,
		bandit:      bandit,
		rlhf:        rlhf,
		critique:    critique,
		invalidator: invalidator,
		logger:      logger.Named("feedback"),
		queue:       make(chan *types.FeedbackEvent, queueDepth),
	}

	for range workerCount {
		p.wg.Add(1)

		go p.worker()
	}

	return p
}

// Submit enqueues event for asynchronous processing. It never blocks the
// caller: if the queue is full the event is dropped and logged, since
// feedback processing must never slow down C8's serving path.
func (p *Processor) Submit(event *types.FeedbackEvent) bool {
	select {
	case p.queue <- event:
		return true
	default:
		p.logger.Warn("feedback queue full, dropping event",
			zap.String("eventId", event.ID.String()), zap.String("userId", event.UserID))

		return false
	}
}

// Close stops accepting new work and waits for in-flight events to drain.
func (p *Processor) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Processor) worker() {
	defer p.wg.Done()

	for event := range p.queue {
		p.processSerialized(event)
	}
}

// processSerialized takes the submitting user's lock so FeedbackEvents for
// the same user never run concurrently, while distinct users process
// concurrently across the pool. With more than one worker, two events for
// the same user can take the lock in either order, so submission order is
// not guaranteed.
func (p *Processor) processSerialized(event *types.FeedbackEvent) {
	unlock := p.locks.Lock(event.UserID)
	defer unlock()

	if err := p.Process(context.Background(), event); err != nil {
		p.logger.Error("feedback event processing failed",
			zap.String("eventId", event.ID.String()), zap.String("userId", event.UserID), zap.Error(err))
	}
}

// Process applies one FeedbackEvent synchronously: idempotency guard,
// ownership check, then the signal-specific reward update. Exported so
// callers needing a synchronous guarantee (tests, the HTTP handler
// wanting immediate confirmation of the idempotency check) can bypass
// the queue.
func (p *Processor) Process(ctx context.Context, event *types.FeedbackEvent) error {
	inserted, err := p.events.TryAppend(ctx, event)
	if err != nil {
		return fmt.Errorf("persist feedback event %s: %w", event.ID, err)
	}

	if !inserted {
		p.logger.Info("rejected replayed feedback event", zap.String("eventId", event.ID.String()))
		return nil
	}

	generation, err := p.generations.Get(ctx, event.GenerationID)
	if err != nil {
		return fmt.Errorf("lookup generation %s: %w", event.GenerationID, err)
	}

	if generation.UserID != event.UserID {
		return fmt.Errorf("%w: generation %s belongs to %s, event from %s",
			ErrGenerationNotOwned, generation.ID, generation.UserID, event.UserID)
	}

	spec, err := p.prompts.Get(ctx, generation.PromptID)
	if err != nil {
		return fmt.Errorf("lookup prompt %s: %w", generation.PromptID, err)
	}

	switch event.Kind {
	case enum.FeedbackKindCritique:
		return p.applyCritique(ctx, event, spec)
	case enum.FeedbackKindSwipe:
		return nil
	default:
		return p.applyTableReward(ctx, event, spec)
	}
}

// applyTableReward applies the fixed per-kind reward to every RLHF token
// and bandit slot value present in the Generation's rendered PromptSpec.
func (p *Processor) applyTableReward(ctx context.Context, event *types.FeedbackEvent, spec *types.PromptSpec) error {
	for category, token := range spec.RLHFPicks {
		if err := p.rlhf.Reward(ctx, event.UserID, enum.RLHFCategory(category), token, event.Kind, impressionMillis(event)); err != nil {
			return fmt.Errorf("reward rlhf %s/%s: %w", category, token, err)
		}
	}

	if event.Kind == enum.FeedbackKindImpressionMS {
		// impression_ms contributes 0 to the bandit.
		return nil
	}

	reward := banditRewardForKind(event.Kind)
	if reward == 0 {
		return nil
	}

	for slot, value := range slotValues(spec) {
		if err := p.bandit.Update(ctx, event.UserID, slot, value, reward); err != nil {
			return fmt.Errorf("reward bandit %s/%s: %w", slot, value, err)
		}
	}

	if event.Kind == enum.FeedbackKindDelete && p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx, event.UserID); err != nil {
			p.logger.Warn("profile invalidation failed after delete feedback",
				zap.String("userId", event.UserID), zap.Error(err))
		}
	}

	return nil
}

// applyCritique parses free text into a Delta and applies it: add-tokens
// as strong positive RLHF updates, remove-tokens as strong negative ones,
// slot overrides as strong positive bandit updates.
func (p *Processor) applyCritique(ctx context.Context, event *types.FeedbackEvent, spec *types.PromptSpec) error {
	text, _ := event.Payload["text"].(string)
	if text == "" {
		return nil
	}

	delta, err := p.critique.Parse(ctx, spec, text)
	if err != nil {
		return fmt.Errorf("parse critique for event %s: %w", event.ID, err)
	}

	for _, tok := range delta.Add {
		if err := p.rlhf.ApplyRaw(ctx, event.UserID, tok.Category, tok.Token, critiqueReward); err != nil {
			return fmt.Errorf("apply critique add %s/%s: %w", tok.Category, tok.Token, err)
		}
	}

	for _, tok := range delta.Remove {
		if err := p.rlhf.ApplyRaw(ctx, event.UserID, tok.Category, tok.Token, -critiqueReward); err != nil {
			return fmt.Errorf("apply critique remove %s/%s: %w", tok.Category, tok.Token, err)
		}
	}

	for slot, value := range delta.SlotOverrides {
		if value == "" {
			continue
		}

		if err := p.bandit.Update(ctx, event.UserID, slot, value, critiqueReward); err != nil {
			return fmt.Errorf("apply critique slot override %s/%s: %w", slot, value, err)
		}
	}

	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx, event.UserID); err != nil {
			p.logger.Warn("profile invalidation failed after critique", zap.String("userId", event.UserID), zap.Error(err))
		}
	}

	return nil
}

// banditRewardForKind is the bandit-column reward table (spec.md §4.10):
// distinct from rlhf.RewardForKind's RLHF-column magnitudes.
func banditRewardForKind(kind enum.FeedbackKind) float64 {
	switch kind {
	case enum.FeedbackKindLike, enum.FeedbackKindSave:
		return 0.1
	case enum.FeedbackKindShare:
		return 0.15
	case enum.FeedbackKindGenerateSimilar:
		return 0.3
	case enum.FeedbackKindDislike:
		return -0.1
	case enum.FeedbackKindDelete:
		return -0.2
	default:
		return 0
	}
}

func impressionMillis(event *types.FeedbackEvent) int {
	if event.Kind != enum.FeedbackKindImpressionMS {
		return 0
	}

	ms, _ := event.Payload["impressionMs"].(float64)

	return int(ms)
}

// slotValues extracts the concrete (slot, value) pairs a PromptSpec
// actually rendered, for bandit-reward attribution.
func slotValues(spec *types.PromptSpec) map[enum.AttributeSlot]string {
	values := make(map[enum.AttributeSlot]string, 8)

	add := func(slot enum.AttributeSlot, value string) {
		if value != "" {
			values[slot] = value
		}
	}

	add(enum.SlotGarment, spec.Garment)
	add(enum.SlotSilhouette, spec.Silhouette)
	add(enum.SlotFabric, spec.Fabric)
	add(enum.SlotFinish, spec.Finish)
	add(enum.SlotLighting, spec.Lighting.Type)
	add(enum.SlotCamera, spec.Camera.Angle)
	add(enum.SlotBackground, spec.Background)

	if len(spec.ColorPalette) > 0 {
		add(enum.SlotColor, spec.ColorPalette[0])
	}

	return values
}

// keyedMutex serializes work per string key without pre-allocating one
// mutex per possible user.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the mutex for key and returns a function that releases it.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}

	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()

	return l.Unlock
}
