package taxonomy

import "fmt"

// VocabularyValidator rejects values outside the closed vocabulary for each
// field, replacing them with the uncertain sentinel rather than allowing
// an invented value to reach persistence.
type VocabularyValidator struct {
	taxonomy *Taxonomy
}

// NewVocabularyValidator creates a VocabularyValidator bound to taxonomy.
func NewVocabularyValidator(taxonomy *Taxonomy) *VocabularyValidator {
	return &VocabularyValidator{taxonomy: taxonomy}
}

// Validate canonicalizes every closed-vocabulary field on each garment.
func (v *VocabularyValidator) Validate(descriptor *Descriptor) []DescriptorCorrection {
	var corrections []DescriptorCorrection

	for i := range descriptor.Garments {
		g := &descriptor.Garments[i]

		corrections = append(corrections,
			v.canonicalizeField(fmt.Sprintf("garments[%d].type", i), &g.Type, SlotGarment)...)
		corrections = append(corrections,
			v.canonicalizeField(fmt.Sprintf("garments[%d].silhouette", i), &g.Silhouette, SlotSilhouette)...)

		if g.Collar != "" {
			corrections = append(corrections,
				v.canonicalizeField(fmt.Sprintf("garments[%d].collar", i), &g.Collar, SlotNeckline)...)
		}
		if g.SleeveLength != "" {
			corrections = append(corrections,
				v.canonicalizeField(fmt.Sprintf("garments[%d].sleeveLength", i), &g.SleeveLength, SlotSleeveLength)...)
		}
		if g.Fabric.Finish != "" {
			corrections = append(corrections,
				v.canonicalizeField(fmt.Sprintf("garments[%d].fabric.finish", i), &g.Fabric.Finish, SlotFinish)...)
		}
	}

	return corrections
}

func (v *VocabularyValidator) canonicalizeField(fieldPath string, value *string, slot string) []DescriptorCorrection {
	if *value == "" || v.taxonomy.InVocabulary(*value, slot) {
		if canonical, ok := v.taxonomy.Canonicalize(*value, slot); ok && canonical != *value {
			original := *value
			*value = canonical

			return []DescriptorCorrection{{
				FieldPath:      fieldPath,
				AIValue:        original,
				CorrectedValue: canonical,
				RuleID:         "vocabulary_canonicalize",
			}}
		}

		return nil
	}

	original := *value
	*value = UncertainSentinel

	return []DescriptorCorrection{{
		FieldPath:      fieldPath,
		AIValue:        original,
		CorrectedValue: UncertainSentinel,
		RuleID:         "vocabulary_unrecognized",
	}}
}
