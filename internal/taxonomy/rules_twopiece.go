package taxonomy

import (
	"fmt"
	"strings"
)

// bottomTypes identifies garments that constitute a separate bottom piece.
var bottomTypes = []string{"skirt", "pants", "trousers"}

// topTypes identifies garments that constitute a separate top piece.
var topTypes = []string{"shirt", "t-shirt", "blouse", "top"}

// TwoPieceDisciplineValidator enforces the two-piece rule: a continuous,
// unseparated garment is a dress; a visibly separated matching top+bottom
// is a two-piece. A descriptor must never label a separated top+skirt as
// a dress.
type TwoPieceDisciplineValidator struct{}

// NewTwoPieceDisciplineValidator creates a TwoPieceDisciplineValidator.
func NewTwoPieceDisciplineValidator() *TwoPieceDisciplineValidator {
	return &TwoPieceDisciplineValidator{}
}

// Validate reclassifies a "dress" descriptor as "two-piece" whenever the
// garment list itself shows a visibly separated top and bottom.
func (v *TwoPieceDisciplineValidator) Validate(descriptor *Descriptor) []DescriptorCorrection {
	var corrections []DescriptorCorrection

	hasTop, _ := findGarmentOfAny(descriptor.Garments, topTypes)
	hasBottom, _ := findGarmentOfAny(descriptor.Garments, bottomTypes)

	if !hasTop || !hasBottom {
		return nil
	}

	for i := range descriptor.Garments {
		g := &descriptor.Garments[i]
		if !strings.EqualFold(g.Type, "dress") {
			continue
		}

		original := g.Type
		g.Type = "two-piece"

		corrections = append(corrections, DescriptorCorrection{
			FieldPath:      fmt.Sprintf("garments[%d].type", i),
			AIValue:        original,
			CorrectedValue: "two-piece",
			RuleID:         "two_piece_discipline",
		})
	}

	return corrections
}

func findGarmentOfAny(garments []Garment, types []string) (found bool, index int) {
	for i, g := range garments {
		for _, t := range types {
			if strings.EqualFold(g.Type, t) {
				return true, i
			}
		}
	}
	return false, -1
}
