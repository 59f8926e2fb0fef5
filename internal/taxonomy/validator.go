package taxonomy

import "slices"

// Validator is the interface every logical-consistency rule implements.
type Validator interface {
	// Validate inspects descriptor and returns any corrections it applies.
	// Implementations mutate descriptor in place to apply the correction and
	// additionally report it as a DescriptorCorrection for the audit log.
	Validate(descriptor *Descriptor) []DescriptorCorrection
}

// Validate runs every registered rule against descriptor, in order, and
// reports whether the result is acceptable for persistence.
//
// ok is false only on an unrecoverable violation (no garment detected at
// all); everything else is corrected in place and still returns ok=true,
// since corrections are the documented recovery path for a consistency
// violation.
//
// Validate is deterministic, pure, and idempotent: the rules run on a copy
// (the caller's descriptor and its Garments slice are left unchanged), and
// running it twice over its own output produces no further corrections.
func (t *Taxonomy) Validate(descriptor *Descriptor) (corrected *Descriptor, corrections []DescriptorCorrection, ok bool) {
	if descriptor == nil || len(descriptor.Garments) == 0 {
		return descriptor, nil, false
	}

	copied := *descriptor
	copied.Garments = slices.Clone(descriptor.Garments)
	descriptor = &copied

	validators := []Validator{
		NewVocabularyValidator(t),
		NewBlazerCollarValidator(),
		NewSleevelessJacketValidator(),
		NewTwoPieceDisciplineValidator(),
		NewFabricSpecificityValidator(),
	}

	for _, v := range validators {
		corrections = append(corrections, v.Validate(descriptor)...)
	}

	return descriptor, corrections, true
}
