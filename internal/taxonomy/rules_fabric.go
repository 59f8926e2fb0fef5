package taxonomy

import (
	"fmt"
	"slices"
	"strings"
)

// genericFabricTerms are rejected outright: bare placeholder strings like
// "fabric" or "material" carry no signal. C2 treats the resulting
// correction as a retry trigger and does not persist the descriptor; the
// retry sends the same prompt as the first attempt, with no stricter
// instruction added.
var genericFabricTerms = []string{"fabric", "material", "cloth", "textile"}

// FabricSpecificityValidator rejects non-specific fabric descriptions,
// replacing them with the uncertain sentinel and reporting a
// fabric_specificity correction, which C2 retries on.
type FabricSpecificityValidator struct{}

// NewFabricSpecificityValidator creates a FabricSpecificityValidator.
func NewFabricSpecificityValidator() *FabricSpecificityValidator {
	return &FabricSpecificityValidator{}
}

// Validate flags any garment whose primary_material is empty or a generic
// placeholder term.
func (v *FabricSpecificityValidator) Validate(descriptor *Descriptor) []DescriptorCorrection {
	var corrections []DescriptorCorrection

	for i := range descriptor.Garments {
		g := &descriptor.Garments[i]

		material := strings.TrimSpace(g.Fabric.PrimaryMaterial)
		isGeneric := material == "" || slices.ContainsFunc(genericFabricTerms, func(term string) bool {
			return strings.EqualFold(material, term)
		})
		if !isGeneric {
			continue
		}

		original := g.Fabric.PrimaryMaterial
		g.Fabric.PrimaryMaterial = UncertainSentinel

		corrections = append(corrections, DescriptorCorrection{
			FieldPath:      fmt.Sprintf("garments[%d].fabric.primaryMaterial", i),
			AIValue:        original,
			CorrectedValue: UncertainSentinel,
			RuleID:         "fabric_specificity",
		})
	}

	return corrections
}
