package promptbuilder

import "strings"

// Specificity classifies how precisely a user command constrains the
// generation, per the fixed creativity/brand-DNA table.
type Specificity string

const (
	SpecificityLow    Specificity = "low"
	SpecificityMedium Specificity = "medium"
	SpecificityHigh   Specificity = "high"
)

// specificityProfile carries the tuning values a Specificity maps to.
type specificityProfile struct {
	Creativity      float64
	BrandDNAStrength float64
	RespectIntent   bool
}

var specificityTable = map[Specificity]specificityProfile{
	SpecificityLow:    {Creativity: 0.8, BrandDNAStrength: 0.9, RespectIntent: false},
	SpecificityMedium: {Creativity: 0.5, BrandDNAStrength: 0.6, RespectIntent: false},
	SpecificityHigh:   {Creativity: 0.2, BrandDNAStrength: 0.3, RespectIntent: true},
}

// technicalTerms are fabric names and construction vocabulary whose
// presence signals a technically precise command.
var technicalTerms = []string{
	"wool", "cotton", "silk", "linen", "denim", "velvet", "leather", "tweed",
	"cashmere", "satin", "twill", "poplin", "gabardine", "pleat", "lapel",
	"seam", "stitch", "cuff", "collar", "hem", "placket",
}

// imperativeTerms signal an instruction demanding precision.
var imperativeTerms = []string{"exactly", "must", "only", "precisely", "strictly"}

// quantityTerms are counted toward the quantity-word ratio.
var quantityTerms = []string{"one", "two", "three", "a", "some", "few", "several", "many"}

// ClassifySpecificity classifies a free-text user command's specificity
// from the count of concrete attributes mentioned, technical terms,
// imperative precision language, and the ratio of quantity words.
func ClassifySpecificity(command string) Specificity {
	if strings.TrimSpace(command) == "" {
		return SpecificityLow
	}

	words := strings.Fields(strings.ToLower(command))
	if len(words) == 0 {
		return SpecificityLow
	}

	technical := countMatches(words, technicalTerms)
	imperative := countMatches(words, imperativeTerms)
	quantity := countMatches(words, quantityTerms)
	quantityRatio := float64(quantity) / float64(len(words))

	score := technical + imperative
	if quantityRatio > 0.1 {
		score++
	}

	switch {
	case score >= 3 || imperative > 0:
		return SpecificityHigh
	case score >= 1:
		return SpecificityMedium
	default:
		return SpecificityLow
	}
}

func countMatches(words []string, vocabulary []string) int {
	set := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		set[v] = struct{}{}
	}

	count := 0

	for _, w := range words {
		if _, ok := set[strings.Trim(w, ".,!?")]; ok {
			count++
		}
	}

	return count
}
