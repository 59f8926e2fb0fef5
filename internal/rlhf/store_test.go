package rlhf

import (
	"context"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWeights struct {
	weights []*types.RLHFTokenWeight
	applied []string
}

func (s *stubWeights) GetCategory(context.Context, string, enum.RLHFCategory) ([]*types.RLHFTokenWeight, error) {
	return s.weights, nil
}

func (s *stubWeights) ApplyReward(_ context.Context, userID string, category enum.RLHFCategory, token string, before, after, reward float64) error {
	s.applied = append(s.applied, token)

	for _, w := range s.weights {
		if w.Token == token {
			w.Weight = after
			return nil
		}
	}

	s.weights = append(s.weights, &types.RLHFTokenWeight{UserID: userID, Category: category, Token: token, Weight: after})

	return nil
}

func TestSelect_RejectsUnknownCategory(t *testing.T) {
	store := New(&stubWeights{}, zap.NewNop())

	_, err := store.Select(context.Background(), "u1", enum.RLHFCategory("bogus"))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSelect_EmptyCategoryReturnsEmptyToken(t *testing.T) {
	store := New(&stubWeights{}, zap.NewNop())

	token, err := store.Select(context.Background(), "u1", enum.CategoryLighting)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestApplyRaw_EMAUpdatesTowardReward(t *testing.T) {
	weights := &stubWeights{weights: []*types.RLHFTokenWeight{
		{UserID: "u1", Category: enum.CategoryStyle, Token: "minimalist", Weight: 1.0},
	}}
	store := New(weights, zap.NewNop())

	require.NoError(t, store.ApplyRaw(context.Background(), "u1", enum.CategoryStyle, "minimalist", 1.5))

	assert.InDelta(t, 1.05, weights.weights[0].Weight, 0.001)
}

func TestRewardForKind_MatchesFixedTable(t *testing.T) {
	assert.InDelta(t, 1.0, RewardForKind(enum.FeedbackKindLike, 0), 0.001)
	assert.InDelta(t, 1.2, RewardForKind(enum.FeedbackKindShare, 0), 0.001)
	assert.InDelta(t, 1.5, RewardForKind(enum.FeedbackKindGenerateSimilar, 0), 0.001)
	assert.InDelta(t, -0.5, RewardForKind(enum.FeedbackKindDislike, 0), 0.001)
	assert.InDelta(t, -1.0, RewardForKind(enum.FeedbackKindDelete, 0), 0.001)
	assert.InDelta(t, 0.3, RewardForKind(enum.FeedbackKindImpressionMS, 20_000), 0.001)
	assert.InDelta(t, 0.15, RewardForKind(enum.FeedbackKindImpressionMS, 5_000), 0.001)
}

func TestClip_BoundsToZeroTwo(t *testing.T) {
	assert.InDelta(t, 2.0, clip(5, minWeight, maxWeight), 0.001)
	assert.InDelta(t, 0.0, clip(-5, minWeight, maxWeight), 0.001)
}
