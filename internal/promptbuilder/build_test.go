package promptbuilder

import (
	"strings"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func sampleProfile() *types.StyleProfile {
	return &types.StyleProfile{
		GarmentDistribution:    types.Distribution{"blazer": 8, "dress": 2},
		ColorDistribution:      types.Distribution{"black": 6, "navy": 4},
		FabricDistribution:     types.Distribution{"wool": 7},
		SilhouetteDistribution: types.Distribution{"fitted": 5},
		LightingDistribution:   types.Distribution{"studio": 9},
		CameraDistribution:     types.Distribution{"eye-level": 9},
		BackgroundDistribution: types.Distribution{"seamless white": 9},
		AestheticThemes:        []string{"Minimalist"},
		TotalImages:            10,
		SignaturePieces:        []types.SignaturePiece{{GarmentType: "blazer", Confidence: 0.9}},
	}
}

func TestBuild_RendersMandatoryModelPoseBlock(t *testing.T) {
	spec, _ := Build("u1", sampleProfile(), nil, nil, nil, Options{})

	assert.Contains(t, spec.RenderedText, "model facing camera")
	assert.Contains(t, spec.RenderedText, "front-facing pose")
}

func TestBuild_OverridesNonFrontLearnedPose(t *testing.T) {
	spec, _ := Build("u1", sampleProfile(), nil, map[enum.RLHFCategory]string{enum.CategoryModelPose: "profile"}, nil, Options{})

	assert.Contains(t, spec.RenderedText, "3/4 front angle")
}

func TestBuild_NegativeTextAlwaysIncludesMandatoryTerms(t *testing.T) {
	spec, _ := Build("u1", sampleProfile(), nil, nil, nil, Options{})
	assert.Equal(t, mandatoryNegativeTerms, spec.NegativeText)
}

func TestBuild_ClusterPrefixUsesTopTheme(t *testing.T) {
	spec, _ := Build("u1", sampleProfile(), nil, nil, nil, Options{})
	assert.Contains(t, spec.RenderedText, "signature 'Minimalist' mode")
}

func TestBuild_EnforcesWordBudget(t *testing.T) {
	longCommand := strings.Repeat("detail ", 80)
	spec, meta := Build("u1", sampleProfile(), nil, nil, nil, Options{Command: longCommand, MaxWords: 50})

	assert.LessOrEqual(t, len(strings.Fields(spec.RenderedText)), 50)
	assert.True(t, spec.Truncated)
	assert.True(t, meta.Truncated)
}

func TestBuild_HighSpecificityCommandFreezesIntent(t *testing.T) {
	_, meta := Build("u1", sampleProfile(), nil, nil, nil, Options{Command: "exactly wool blazer with notched lapel"})

	assert.Equal(t, SpecificityHigh, meta.Specificity)
	assert.InDelta(t, 0.2, meta.Creativity, 0.001)
	assert.InDelta(t, 0.3, meta.BrandDNAStrength, 0.001)
}

func TestBuild_LowSpecificityWithNoCommand(t *testing.T) {
	_, meta := Build("u1", sampleProfile(), nil, nil, nil, Options{})

	assert.Equal(t, SpecificityLow, meta.Specificity)
	assert.InDelta(t, 0.8, meta.Creativity, 0.001)
}

func TestBuild_BanditSampleOverridesProfileDominant(t *testing.T) {
	bandit := map[enum.AttributeSlot]string{enum.SlotGarment: "jumpsuit"}
	spec, _ := Build("u1", sampleProfile(), bandit, nil, nil, Options{})

	assert.Equal(t, "jumpsuit", spec.Garment)
}

func TestBuild_GapBoostIncreasesSlotWeight(t *testing.T) {
	gaps := []*types.AttributeGap{{Slot: enum.SlotFabric, RecommendedBoost: 1.5, Active: true}}
	spec, _ := Build("u1", sampleProfile(), nil, nil, gaps, Options{})

	assert.Greater(t, spec.WeightMap[string(enum.SlotFabric)], slotDefaultWeight[enum.SlotFabric])
}

func TestClassifySpecificity_EmptyCommandIsLow(t *testing.T) {
	assert.Equal(t, SpecificityLow, ClassifySpecificity(""))
}
