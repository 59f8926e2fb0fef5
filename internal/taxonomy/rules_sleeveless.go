package taxonomy

import (
	"fmt"
	"slices"
	"strings"
)

// jacketLikeTypes are garment types that cannot be sleeveless without
// actually being a vest/gilet.
var jacketLikeTypes = []string{"jacket", "blazer", "coat"}

// SleevelessJacketValidator enforces "sleeveless jacket ⇒ vest/gilet": a
// garment with sleeve_length=sleeveless cannot be classified as a jacket,
// blazer, or coat.
type SleevelessJacketValidator struct{}

// NewSleevelessJacketValidator creates a SleevelessJacketValidator.
func NewSleevelessJacketValidator() *SleevelessJacketValidator {
	return &SleevelessJacketValidator{}
}

// Validate reclassifies sleeveless jackets/blazers/coats as vests in place.
func (v *SleevelessJacketValidator) Validate(descriptor *Descriptor) []DescriptorCorrection {
	var corrections []DescriptorCorrection

	for i := range descriptor.Garments {
		g := &descriptor.Garments[i]

		if !strings.EqualFold(g.SleeveLength, "sleeveless") {
			continue
		}

		isJacketLike := slices.ContainsFunc(jacketLikeTypes, func(t string) bool {
			return strings.EqualFold(g.Type, t)
		})
		if !isJacketLike {
			continue
		}

		corrected := "vest"
		if hasQuiltedTexture(g.ConstructionDetails) {
			corrected = "quilted vest"
		}

		original := g.Type
		g.Type = corrected

		corrections = append(corrections, DescriptorCorrection{
			FieldPath:      fmt.Sprintf("garments[%d].type", i),
			AIValue:        original,
			CorrectedValue: corrected,
			RuleID:         "sleeveless_jacket",
		})
	}

	return corrections
}

func hasQuiltedTexture(details []string) bool {
	for _, d := range details {
		if strings.Contains(strings.ToLower(d), "quilt") {
			return true
		}
	}
	return false
}
