// Package rlhf maintains a per-(user, category, token) scalar weight in
// [0, 2] and selects tokens epsilon-greedily, nudged by an exponential
// moving average over observed rewards.
package rlhf

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"go.uber.org/zap"
)

// ErrUnknownCategory is returned when a caller supplies a category C6 was
// never told to track. C7 owns the token->category mapping; C6 never
// infers it.
var ErrUnknownCategory = errors.New("rlhf: unknown category")

// epsilon is the exploration probability in epsilon-greedy selection.
const epsilon = 0.15

// learningRate (eta) is the EMA step size applied to every reward.
const learningRate = 0.1

// defaultWeight is the prior for a token never observed before.
const defaultWeight = 1.0

// minWeight and maxWeight bound the EMA-updated weight.
const (
	minWeight = 0.0
	maxWeight = 2.0
)

// impressionCapMS is the cap on implicit impression-time reward scaling.
const impressionCapMS = 10_000

// knownCategories is the closed set of categories this store will accept.
var knownCategories = map[enum.RLHFCategory]struct{}{
	enum.CategoryLighting:    {},
	enum.CategoryComposition: {},
	enum.CategoryStyle:       {},
	enum.CategoryQuality:     {},
	enum.CategoryMood:        {},
	enum.CategoryModelPose:   {},
}

// WeightStore reads and writes RLHFTokenWeight/RLHFFeedbackLog rows.
type WeightStore interface {
	GetCategory(ctx context.Context, userID string, category enum.RLHFCategory) ([]*types.RLHFTokenWeight, error)
	ApplyReward(ctx context.Context, userID string, category enum.RLHFCategory, token string, before, after, reward float64) error
}

// Store is the C6 RLHF component.
type Store struct {
	weights WeightStore
	logger  *zap.Logger
}

// New creates a Store.
func New(weights WeightStore, logger *zap.Logger) *Store {
	return &Store{weights: weights, logger: logger.Named("rlhf")}
}

// Select picks a token for a category: with probability 1-epsilon the
// top-weighted token, otherwise uniform random over the known tokens.
func (s *Store) Select(ctx context.Context, userID string, category enum.RLHFCategory) (string, error) {
	if _, ok := knownCategories[category]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	weights, err := s.weights.GetCategory(ctx, userID, category)
	if err != nil {
		return "", fmt.Errorf("get rlhf category %s for %s: %w", category, userID, err)
	}

	if len(weights) == 0 {
		return "", nil
	}

	if rand.Float64() < epsilon {
		return weights[rand.IntN(len(weights))].Token, nil
	}

	sort.Slice(weights, func(i, j int) bool { return weights[i].Weight > weights[j].Weight })

	return weights[0].Token, nil
}

// Reward applies the kind-specific reward for one (category, token) pair
// via an exponential moving average, and logs the transition.
func (s *Store) Reward(ctx context.Context, userID string, category enum.RLHFCategory, token string, kind enum.FeedbackKind, impressionMS int) error {
	if _, ok := knownCategories[category]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	reward := RewardForKind(kind, impressionMS)

	return s.ApplyRaw(ctx, userID, category, token, reward)
}

// ApplyRaw applies a precomputed reward (e.g. from a critique-parse
// delta) to one (category, token) weight.
func (s *Store) ApplyRaw(ctx context.Context, userID string, category enum.RLHFCategory, token string, reward float64) error {
	weights, err := s.weights.GetCategory(ctx, userID, category)
	if err != nil {
		return fmt.Errorf("get rlhf category %s for %s: %w", category, userID, err)
	}

	before := defaultWeight
	for _, w := range weights {
		if w.Token == token {
			before = w.Weight
			break
		}
	}

	after := clip(before+learningRate*(reward-before), minWeight, maxWeight)

	if err := s.weights.ApplyReward(ctx, userID, category, token, before, after, reward); err != nil {
		return fmt.Errorf("apply rlhf reward %s/%s/%s: %w", userID, category, token, err)
	}

	return nil
}

// RewardForKind maps one FeedbackEvent kind to its RLHF reward magnitude,
// per the fixed table: save +1.0, share +1.2, generate_similar +1.5,
// like +1.0, dislike -0.5, delete -1.0; implicit impression time
// contributes up to +0.3.
func RewardForKind(kind enum.FeedbackKind, impressionMS int) float64 {
	switch kind {
	case enum.FeedbackKindLike:
		return 1.0
	case enum.FeedbackKindSave:
		return 1.0
	case enum.FeedbackKindShare:
		return 1.2
	case enum.FeedbackKindGenerateSimilar:
		return 1.5
	case enum.FeedbackKindDislike:
		return -0.5
	case enum.FeedbackKindDelete:
		return -1.0
	case enum.FeedbackKindImpressionMS:
		capped := impressionMS
		if capped > impressionCapMS {
			capped = impressionCapMS
		}
		if capped < 0 {
			capped = 0
		}

		return float64(capped) / impressionCapMS * 0.3
	default:
		return 0
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
