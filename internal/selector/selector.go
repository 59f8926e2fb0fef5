// Package selector scores Generation candidates, picks a diverse
// high-quality subset via a greedy DPP-style objective, and analyzes
// per-slot coverage against a StyleProfile to emit AttributeGaps. Pure,
// CPU-bound; no suspension points.
package selector

import (
	"math"
	"sort"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
)

// qualityThreshold is the minimum per-image quality score (of 100) a
// candidate must clear to remain eligible for selection.
const qualityThreshold = 60.0

// diversityAlpha weights quality against dissimilarity-to-selected in the
// greedy selection objective.
const diversityAlpha = 0.6

// coverageTarget is the minimum per-slot coverage share before a gap is
// flagged.
const coverageTarget = 0.8

// Scorer computes a bounded [0, 100] quality score for one candidate.
// Pluggable: the default (DefaultScorer) combines resolution adequacy and
// adapter-reported cost and does not decode pixels; callers may supply
// their own.
type Scorer interface {
	Score(candidate *Candidate) float64
}

// Candidate is one Generation plus the PromptSpec it rendered from, the
// unit the selector scores and diversifies over.
type Candidate struct {
	Generation *types.Generation
	Spec       *types.PromptSpec
}

// Result is the outcome of one selection run.
type Result struct {
	Selected       []*Candidate
	DiversityScore float64
	Gaps           []*types.AttributeGap
}

// Select scores every candidate, drops those below threshold, and
// greedily picks up to n (fewer when fewer clear the threshold) maximizing
// quality minus similarity to already-selected picks.
func Select(candidates []*Candidate, n int, scorer Scorer, profile *types.StyleProfile) Result {
	scored := make([]*Candidate, 0, len(candidates))
	scores := map[*Candidate]float64{}

	for _, c := range candidates {
		score := scorer.Score(c)
		if score < qualityThreshold {
			continue
		}

		scores[c] = score
		scored = append(scored, c)
		c.Generation.QualityScore = ptrFloat(score)
	}

	selected := greedySelect(scored, scores, n)

	diversity := averagePairwiseDissimilarity(selected)

	gaps := coverageGaps(selected, profile)

	return Result{Selected: selected, DiversityScore: diversity, Gaps: gaps}
}

func greedySelect(candidates []*Candidate, scores map[*Candidate]float64, n int) []*Candidate {
	if n > len(candidates) {
		n = len(candidates)
	}

	remaining := make([]*Candidate, len(candidates))
	copy(remaining, candidates)

	var selected []*Candidate

	for len(selected) < n && len(remaining) > 0 {
		bestIdx := -1
		bestObjective := math.Inf(-1)

		for i, c := range remaining {
			maxSim := maxSimilarityTo(c, selected)
			objective := diversityAlpha*normalizedScore(scores[c])-(1-diversityAlpha)*maxSim

			if objective > bestObjective {
				bestObjective, bestIdx = objective, i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func normalizedScore(score float64) float64 {
	return score / 100.0
}

// maxSimilarityTo is the maximum one-hot feature-vector cosine similarity
// between a candidate and any already-selected candidate.
func maxSimilarityTo(candidate *Candidate, selected []*Candidate) float64 {
	max := 0.0

	for _, s := range selected {
		sim := similarity(candidate.Spec, s.Spec)
		if sim > max {
			max = sim
		}
	}

	return max
}

// similarity compares two PromptSpecs by counting matching slot values
// over the total number of compared slots.
func similarity(a, b *types.PromptSpec) float64 {
	if a == nil || b == nil {
		return 0
	}

	slots := [][2]string{
		{a.Garment, b.Garment}, {a.Silhouette, b.Silhouette}, {a.Fabric, b.Fabric},
		{a.Finish, b.Finish}, {a.Background, b.Background},
		{a.Lighting.Type, b.Lighting.Type}, {a.Camera.Angle, b.Camera.Angle},
	}

	matches := 0

	for _, pair := range slots {
		if pair[0] != "" && pair[0] == pair[1] {
			matches++
		}
	}

	return float64(matches) / float64(len(slots))
}

func averagePairwiseDissimilarity(selected []*Candidate) float64 {
	if len(selected) < 2 {
		return 1
	}

	var total float64
	var pairs int

	for i := range selected {
		for j := i + 1; j < len(selected); j++ {
			total += 1 - similarity(selected[i].Spec, selected[j].Spec)
			pairs++
		}
	}

	if pairs == 0 {
		return 1
	}

	return total / float64(pairs)
}

// coverageGaps compares the selected set's per-slot value coverage
// against the StyleProfile's distribution support and emits an
// AttributeGap for every slot falling below target.
func coverageGaps(selected []*Candidate, profile *types.StyleProfile) []*types.AttributeGap {
	if profile == nil {
		return nil
	}

	slotDists := map[string]types.Distribution{
		"garment":    profile.GarmentDistribution,
		"color":      profile.ColorDistribution,
		"fabric":     profile.FabricDistribution,
		"silhouette": profile.SilhouetteDistribution,
		"lighting":   profile.LightingDistribution,
		"camera":     profile.CameraDistribution,
		"background": profile.BackgroundDistribution,
	}

	slotValue := map[string]func(*types.PromptSpec) string{
		"garment":    func(s *types.PromptSpec) string { return s.Garment },
		"fabric":     func(s *types.PromptSpec) string { return s.Fabric },
		"silhouette": func(s *types.PromptSpec) string { return s.Silhouette },
		"lighting":   func(s *types.PromptSpec) string { return s.Lighting.Type },
		"camera":     func(s *types.PromptSpec) string { return s.Camera.Angle },
		"background": func(s *types.PromptSpec) string { return s.Background },
	}

	var gaps []*types.AttributeGap

	for slot, dist := range slotDists {
		valuesPresent := nonEmptyKeys(dist)
		if len(valuesPresent) == 0 {
			continue
		}

		covered := map[string]struct{}{}

		if getter, ok := slotValue[slot]; ok {
			for _, c := range selected {
				if c.Spec == nil {
					continue
				}
				if v := getter(c.Spec); v != "" {
					covered[v] = struct{}{}
				}
			}
		}

		coverage := float64(len(covered)) / float64(len(valuesPresent))
		if coverage >= coverageTarget {
			continue
		}

		var uncovered []string
		for _, v := range valuesPresent {
			if _, ok := covered[v]; !ok {
				uncovered = append(uncovered, v)
			}
		}

		severity := 1 - coverage
		boost := 1.2 + 0.8*severity
		if boost > 2.0 {
			boost = 2.0
		}

		gaps = append(gaps, &types.AttributeGap{
			UserID:           profile.UserID,
			Slot:             enumSlot(slot),
			UncoveredValues:  uncovered,
			Severity:         severity,
			RecommendedBoost: boost,
			Active:           true,
		})
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Severity > gaps[j].Severity })

	return gaps
}

func nonEmptyKeys(dist types.Distribution) []string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		if k != "" {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys
}

func ptrFloat(v float64) *float64 { return &v }

func enumSlot(slot string) enum.AttributeSlot {
	return enum.AttributeSlot(slot)
}
