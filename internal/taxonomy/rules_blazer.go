package taxonomy

import (
	"fmt"
	"strings"
)

// BlazerCollarValidator enforces "blazer ⇒ has lapels": a garment
// classified as a blazer must show a notched or peaked lapel. A shirt
// collar means it is really a shirt jacket; ribbed cuffs or hem mean it
// is really a bomber jacket.
type BlazerCollarValidator struct{}

// NewBlazerCollarValidator creates a BlazerCollarValidator.
func NewBlazerCollarValidator() *BlazerCollarValidator {
	return &BlazerCollarValidator{}
}

// Validate reclassifies misclassified blazers in place.
func (v *BlazerCollarValidator) Validate(descriptor *Descriptor) []DescriptorCorrection {
	var corrections []DescriptorCorrection

	for i := range descriptor.Garments {
		g := &descriptor.Garments[i]

		if !strings.EqualFold(g.Type, "blazer") {
			continue
		}

		switch {
		case strings.EqualFold(g.Collar, "shirt collar"):
			corrections = append(corrections, reclassify(i, g, "shirt jacket", "blazer_shirt_collar"))
		case hasRibbedCuffsOrHem(g.ConstructionDetails):
			corrections = append(corrections, reclassify(i, g, "bomber jacket", "blazer_ribbed_trim"))
		}
	}

	return corrections
}

func hasRibbedCuffsOrHem(details []string) bool {
	for _, d := range details {
		lower := strings.ToLower(d)
		if strings.Contains(lower, "ribbed cuff") || strings.Contains(lower, "ribbed hem") {
			return true
		}
	}
	return false
}

func reclassify(index int, g *Garment, newType, ruleID string) DescriptorCorrection {
	original := g.Type
	g.Type = newType

	return DescriptorCorrection{
		FieldPath:      fmt.Sprintf("garments[%d].type", index),
		AIValue:        original,
		CorrectedValue: newType,
		RuleID:         ruleID,
	}
}
