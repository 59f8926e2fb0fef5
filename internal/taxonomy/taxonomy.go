// Package taxonomy implements the controlled vocabulary and
// logical-consistency rules for descriptor garments, built as a composable
// multi-validator architecture: a garment/fabric/silhouette taxonomy with
// canonicalization and reclassification rules layered on top of it.
package taxonomy

import (
	"strings"
	"sync"

	"github.com/aureuma/styleengine/pkg/utils"
)

// Slot names for closed-vocabulary fields.
const (
	SlotGarment      = "garment"
	SlotFabric       = "fabric"
	SlotSilhouette   = "silhouette"
	SlotNeckline     = "neckline"
	SlotSleeveLength = "sleeve_length"
	SlotFinish       = "finish"
	SlotTexture      = "texture"
	SlotPattern      = "pattern"
)

// defaultVocabulary is the built-in closed vocabulary. It is representative,
// not exhaustive; callers may extend it via NewTaxonomy's extra parameter.
var defaultVocabulary = map[string][]string{
	SlotGarment: {
		"blazer", "bomber jacket", "vest", "gilet", "utility shirt",
		"quilted vest", "ribbed knit sweater", "dress", "two-piece",
		"outfit", "skirt", "pants", "coat", "jumpsuit", "shirt jacket",
		"shirt", "t-shirt", "cardigan", "trench coat", "parka", "jacket",
	},
	SlotFabric: {
		"cotton twill", "ponte knit", "nylon taffeta", "wool suiting",
		"silk charmeuse", "denim", "leather", "suede", "cashmere",
		"linen", "jersey", "corduroy", "tweed", "chiffon", "velvet",
	},
	SlotSilhouette: {
		"fitted", "oversized", "relaxed", "tailored", "a-line",
		"boxy", "cropped", "straight", "slim", "wide-leg",
	},
	SlotNeckline: {
		"crew neck", "v-neck", "shirt collar", "notched lapel",
		"peaked lapel", "collarless", "mock neck", "cowl neck",
	},
	SlotSleeveLength: {
		"sleeveless", "short sleeve", "three-quarter sleeve", "long sleeve",
	},
	SlotFinish: {
		"matte", "glossy", "brushed", "washed", "coated", "raw",
	},
	SlotTexture: {
		"smooth", "ribbed", "quilted", "woven", "napped", "textured",
	},
	SlotPattern: {
		"solid", "striped", "plaid", "floral", "houndstooth", "camouflage",
	},
}

// Taxonomy holds the closed vocabulary for each field. It is immutable
// after NewTaxonomy returns; callers refresh by constructing a new one and
// swapping it in wholesale.
type Taxonomy struct {
	vocab      map[string]map[string]string // slot -> normalized value -> canonical value
	normalizer *utils.TextNormalizer
	mu         sync.Mutex // guards normalizer, which is not safe for concurrent use
}

// delimiterFolder maps "-" and "_" to a space, so "bomber-jacket" and
// "bomber_jacket" look up the same key as "bomber jacket".
var delimiterFolder = strings.NewReplacer("-", " ", "_", " ")

// NewTaxonomy builds a Taxonomy from the built-in vocabulary, optionally
// extended or overridden by extra per-slot terms. Canonicalize remains
// total over the resulting extension set.
func NewTaxonomy(extra map[string][]string) *Taxonomy {
	t := &Taxonomy{
		vocab:      make(map[string]map[string]string),
		normalizer: utils.NewTextNormalizer(),
	}

	for slot, terms := range defaultVocabulary {
		t.addTerms(slot, terms)
	}
	for slot, terms := range extra {
		t.addTerms(slot, terms)
	}

	return t
}

func (t *Taxonomy) addTerms(slot string, terms []string) {
	set, ok := t.vocab[slot]
	if !ok {
		set = make(map[string]string)
		t.vocab[slot] = set
	}

	for _, term := range terms {
		key := t.normalizer.Normalize(term)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(term))
		}
		key = delimiterFolder.Replace(key)
		set[key] = term

		// Single-word terms also match the AI's plural/past-tense phrasing
		// of the same concept (e.g. "stripe" descriptor text for a
		// "striped" vocabulary entry).
		if !strings.Contains(term, " ") {
			for _, variant := range utils.GenerateMorphologicalVariations(key) {
				if _, exists := set[variant]; !exists {
					set[variant] = term
				}
			}
		}
	}
}

// Canonicalize looks up value in slot's controlled vocabulary, tolerant of
// case and diacritics (via pkg/utils's normalizer) and of "-" or "_"
// written where the vocabulary has a space. Safe for concurrent use.
// Returns the canonical form and true on a hit, or ("", false) if the value
// is not in the vocabulary.
func (t *Taxonomy) Canonicalize(value, slot string) (string, bool) {
	set, ok := t.vocab[slot]
	if !ok {
		return "", false
	}

	t.mu.Lock()
	key := t.normalizer.Normalize(value)
	t.mu.Unlock()
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(value))
	}
	key = delimiterFolder.Replace(key)

	canonical, ok := set[key]
	return canonical, ok
}

// InVocabulary reports whether value is a known value or the uncertain
// sentinel for slot.
func (t *Taxonomy) InVocabulary(value, slot string) bool {
	if strings.EqualFold(value, UncertainSentinel) {
		return true
	}

	_, ok := t.Canonicalize(value, slot)
	return ok
}

// Values returns the canonical values known for slot, for callers building
// cold-start priors (C5) or UI pickers.
func (t *Taxonomy) Values(slot string) []string {
	set := t.vocab[slot]
	values := make([]string, 0, len(set))

	seen := make(map[string]struct{}, len(set))
	for _, canonical := range set {
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		values = append(values, canonical)
	}

	return values
}
