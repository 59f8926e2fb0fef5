package profile

import (
	"context"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDescriptors struct {
	descriptors []*types.Descriptor
}

func (s *stubDescriptors) ListByPortfolio(context.Context, uuid.UUID) ([]*types.Descriptor, error) {
	return s.descriptors, nil
}

type stubSink struct {
	replaced *types.StyleProfile
}

func (s *stubSink) Replace(_ context.Context, profile *types.StyleProfile) error {
	s.replaced = profile
	return nil
}

func descriptorFixture(confidence, completeness float64) *types.Descriptor {
	return &types.Descriptor{
		ID:                     uuid.New(),
		OverallConfidence:      confidence,
		CompletenessPercentage: completeness,
		Document: taxonomy.Descriptor{
			ContextualAttributes: taxonomy.ContextualAttributes{MoodAesthetic: "minimalist/clean"},
			Garments: []taxonomy.Garment{
				{
					Type:                "blazer",
					Silhouette:          "fitted",
					Fabric:              taxonomy.Fabric{PrimaryMaterial: "wool"},
					ColorPalette:        []taxonomy.Color{{ColorName: "black"}},
					ConstructionDetails: []string{"notched lapel"},
				},
			},
			Photography: taxonomy.Photography{
				Lighting: taxonomy.Lighting{Type: "studio"},
				Camera:   taxonomy.Camera{Angle: "eye-level"},
			},
		},
	}
}

func TestAggregate_ComputesDistributionsAndReplaces(t *testing.T) {
	source := &stubDescriptors{descriptors: []*types.Descriptor{
		descriptorFixture(0.9, 85),
		descriptorFixture(0.9, 85),
	}}
	sink := &stubSink{}

	agg := New(source, sink, zap.NewNop())

	portfolioID := uuid.New()
	profile, err := agg.Aggregate(context.Background(), "user-1", portfolioID)
	require.NoError(t, err)

	assert.Equal(t, portfolioID, profile.PortfolioID)
	assert.Equal(t, 2, profile.TotalImages)
	assert.Equal(t, 2, profile.GarmentDistribution["blazer"])
	assert.Equal(t, 2, profile.ColorDistribution["black"])
	assert.Contains(t, profile.AestheticThemes, "Minimalist")
	assert.NotEmpty(t, profile.SignaturePieces)
	assert.InDelta(t, 0.9, profile.AvgConfidence, 0.001)
	assert.InDelta(t, 85, profile.AvgCompleteness, 0.001)
	assert.NotEmpty(t, profile.SummaryText)
	assert.Same(t, profile, sink.replaced)
}

func TestAggregate_NoDescriptorsProducesZeroedProfile(t *testing.T) {
	agg := New(&stubDescriptors{}, &stubSink{}, zap.NewNop())

	profile, err := agg.Aggregate(context.Background(), "user-1", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, profile.TotalImages)
	assert.InDelta(t, 0, profile.AvgConfidence, 0.001)
	assert.InDelta(t, 0, profile.AvgCompleteness, 0.001)
}
