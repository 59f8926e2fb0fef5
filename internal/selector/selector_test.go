package selector

import (
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/stretchr/testify/assert"
)

type fixedScorer map[*Candidate]float64

func (f fixedScorer) Score(c *Candidate) float64 { return f[c] }

func candidate(garment string, width, height int) *Candidate {
	return &Candidate{
		Generation: &types.Generation{Width: width, Height: height},
		Spec:       &types.PromptSpec{Garment: garment},
	}
}

func TestSelect_DropsBelowThreshold(t *testing.T) {
	low := candidate("blazer", 1024, 1024)
	high := candidate("dress", 1024, 1024)

	scores := fixedScorer{low: 40, high: 90}

	result := Select([]*Candidate{low, high}, 2, scores, nil)

	assert.Len(t, result.Selected, 1)
	assert.Equal(t, high, result.Selected[0])
}

func TestSelect_PrefersDiversityAmongEqualQuality(t *testing.T) {
	a := candidate("blazer", 1024, 1024)
	b := candidate("blazer", 1024, 1024)
	c := candidate("dress", 1024, 1024)

	scores := fixedScorer{a: 80, b: 80, c: 80}

	result := Select([]*Candidate{a, b, c}, 2, scores, nil)

	assert.Len(t, result.Selected, 2)

	garments := map[string]bool{}
	for _, sel := range result.Selected {
		garments[sel.Spec.Garment] = true
	}
	assert.True(t, garments["dress"], "diversity pick should favor the distinct garment")
}

func TestSelect_AnnotatesQualityScoreOnSurvivors(t *testing.T) {
	a := candidate("blazer", 1024, 1024)
	scores := fixedScorer{a: 75}

	result := Select([]*Candidate{a}, 1, scores, nil)

	require_NotNil(t, result.Selected[0].Generation.QualityScore)
	assert.InDelta(t, 75, *result.Selected[0].Generation.QualityScore, 0.001)
}

func require_NotNil(t *testing.T, v *float64) {
	t.Helper()
	if v == nil {
		t.Fatal("expected non-nil quality score")
	}
}

func TestCoverageGaps_FlagsUncoveredSlotValues(t *testing.T) {
	profile := &types.StyleProfile{
		UserID:              "u1",
		GarmentDistribution: types.Distribution{"blazer": 5, "dress": 5, "coat": 5},
	}

	selected := []*Candidate{{Spec: &types.PromptSpec{Garment: "blazer"}}}

	gaps := coverageGaps(selected, profile)

	require_NotEmpty(t, gaps)
}

func require_NotEmpty(t *testing.T, gaps []*types.AttributeGap) {
	t.Helper()
	if len(gaps) == 0 {
		t.Fatal("expected at least one coverage gap")
	}
}

func TestDefaultScorer_PenalizesLowResolution(t *testing.T) {
	scorer := DefaultScorer{}

	low := scorer.Score(candidate("blazer", 256, 256))
	high := scorer.Score(candidate("blazer", 1024, 1024))

	assert.Less(t, low, high)
}
