package taxonomy_test

import (
	"testing"

	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)

	tests := []struct {
		name      string
		value     string
		slot      string
		wantValue string
		wantOK    bool
	}{
		{"exact match", "blazer", taxonomy.SlotGarment, "blazer", true},
		{"case insensitive", "BLAZER", taxonomy.SlotGarment, "blazer", true},
		{"delimiter tolerant", "bomber-jacket", taxonomy.SlotGarment, "bomber jacket", true},
		{"unknown value", "space suit", taxonomy.SlotGarment, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tx.Canonicalize(tt.value, tt.slot)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantValue, got)
			}
		})
	}
}

func TestValidate_BlazerShirtCollarReclassifiesToShirtJacket(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	descriptor := &taxonomy.Descriptor{
		Garments: []taxonomy.Garment{
			{Type: "blazer", Collar: "shirt collar", Fabric: taxonomy.Fabric{PrimaryMaterial: "wool suiting"}},
		},
	}

	corrected, corrections, ok := tx.Validate(descriptor)
	require.True(t, ok)
	require.NotEmpty(t, corrections)

	assert.Equal(t, "shirt jacket", corrected.Garments[0].Type)
	assert.Contains(t, correctionRuleIDs(corrections), "blazer_shirt_collar")
}

func TestValidate_SleevelessJacketReclassifiesToVest(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	descriptor := &taxonomy.Descriptor{
		Garments: []taxonomy.Garment{
			{
				Type:                "jacket",
				SleeveLength:        "sleeveless",
				ConstructionDetails: []string{"quilted panels"},
				Fabric:              taxonomy.Fabric{PrimaryMaterial: "nylon taffeta"},
			},
		},
	}

	corrected, _, ok := tx.Validate(descriptor)
	require.True(t, ok)
	assert.Equal(t, "quilted vest", corrected.Garments[0].Type)
}

func TestValidate_SeparatedTopAndBottomNeverLabeledDress(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	descriptor := &taxonomy.Descriptor{
		Garments: []taxonomy.Garment{
			{Type: "dress", Fabric: taxonomy.Fabric{PrimaryMaterial: "cotton twill"}},
			{Type: "shirt", Fabric: taxonomy.Fabric{PrimaryMaterial: "cotton twill"}},
			{Type: "skirt", Fabric: taxonomy.Fabric{PrimaryMaterial: "cotton twill"}},
		},
	}

	corrected, _, ok := tx.Validate(descriptor)
	require.True(t, ok)
	assert.Equal(t, "two-piece", corrected.Garments[0].Type)
}

func TestValidate_GenericFabricFlagged(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	descriptor := &taxonomy.Descriptor{
		Garments: []taxonomy.Garment{
			{Type: "coat", Fabric: taxonomy.Fabric{PrimaryMaterial: "fabric"}},
		},
	}

	corrected, corrections, ok := tx.Validate(descriptor)
	require.True(t, ok)
	assert.Equal(t, taxonomy.UncertainSentinel, corrected.Garments[0].Fabric.PrimaryMaterial)
	assert.Contains(t, correctionRuleIDs(corrections), "fabric_specificity")
}

func TestValidate_NoGarmentsIsUnrecoverable(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	_, _, ok := tx.Validate(&taxonomy.Descriptor{})
	assert.False(t, ok)
}

func TestValidate_IsIdempotent(t *testing.T) {
	t.Parallel()

	tx := taxonomy.NewTaxonomy(nil)
	descriptor := &taxonomy.Descriptor{
		Garments: []taxonomy.Garment{
			{Type: "blazer", Collar: "shirt collar", Fabric: taxonomy.Fabric{PrimaryMaterial: "wool suiting"}},
		},
	}

	first, _, _ := tx.Validate(descriptor)
	_, secondCorrections, _ := tx.Validate(first)

	assert.Empty(t, secondCorrections)
}

func correctionRuleIDs(corrections []taxonomy.DescriptorCorrection) []string {
	ids := make([]string, len(corrections))
	for i, c := range corrections {
		ids[i] = c.RuleID
	}
	return ids
}
