// Package profile aggregates a Portfolio's Descriptors into a single
// StyleProfile: distributions, aesthetic themes, construction patterns,
// signature pieces, and quality roll-ups. Pure over its inputs.
package profile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// signatureConfidenceThreshold is the per-garment confidence a Descriptor
// must clear for one of its garments to become a signature piece.
const signatureConfidenceThreshold = 0.8

// themeMinFrequency drops aesthetic themes mentioned fewer times than this
// across a portfolio's descriptors.
const themeMinFrequency = 2

// topConstructionPatterns caps how many construction-detail patterns are
// reported.
const topConstructionPatterns = 8

// genericThemeTerms are dropped before theme frequency counting.
var genericThemeTerms = map[string]struct{}{
	"not_specified": {},
	"not_visible":   {},
	"unspecified":   {},
	"unknown":       {},
}

// DescriptorSource reads every Descriptor belonging to a Portfolio.
type DescriptorSource interface {
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*types.Descriptor, error)
}

// ProfileSink persists the atomic replacement of a Portfolio's StyleProfile.
type ProfileSink interface {
	Replace(ctx context.Context, profile *types.StyleProfile) error
}

// Aggregator computes and atomically replaces a Portfolio's StyleProfile.
type Aggregator struct {
	descriptors DescriptorSource
	profiles    ProfileSink
	logger      *zap.Logger
}

// New creates an Aggregator.
func New(descriptors DescriptorSource, profiles ProfileSink, logger *zap.Logger) *Aggregator {
	return &Aggregator{descriptors: descriptors, profiles: profiles, logger: logger.Named("profile")}
}

// Aggregate reads every Descriptor for a Portfolio, computes a fresh
// StyleProfile, and atomically replaces the persisted row.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, portfolioID uuid.UUID) (*types.StyleProfile, error) {
	descriptors, err := a.descriptors.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list descriptors for portfolio %s: %w", portfolioID, err)
	}

	profile := a.compute(userID, portfolioID, descriptors)

	if err := a.profiles.Replace(ctx, profile); err != nil {
		return nil, fmt.Errorf("replace style profile for portfolio %s: %w", portfolioID, err)
	}

	return profile, nil
}

func (a *Aggregator) compute(userID string, portfolioID uuid.UUID, descriptors []*types.Descriptor) *types.StyleProfile {
	garmentDist := types.Distribution{}
	colorDist := types.Distribution{}
	fabricDist := types.Distribution{}
	silhouetteDist := types.Distribution{}
	lightingDist := types.Distribution{}
	cameraDist := types.Distribution{}
	backgroundDist := types.Distribution{}

	themeCounts := map[string]int{}
	constructionCounts := map[string]int{}
	var signatures []types.SignaturePiece

	var confidenceSum, completenessSum float64

	for _, d := range descriptors {
		doc := d.Document

		lightingDist[doc.Photography.Lighting.Type]++
		cameraDist[doc.Photography.Camera.Angle]++
		backgroundDist[doc.Photography.Background]++

		for _, theme := range splitThemeLabels(doc.ContextualAttributes.MoodAesthetic) {
			themeCounts[theme]++
		}

		for _, g := range doc.Garments {
			garmentDist[g.Type]++
			fabricDist[g.Fabric.PrimaryMaterial]++
			silhouetteDist[g.Silhouette]++

			for _, c := range g.ColorPalette {
				colorDist[c.ColorName]++
			}

			for _, detail := range g.ConstructionDetails {
				constructionCounts[detail]++
			}

			if d.OverallConfidence >= signatureConfidenceThreshold {
				if detail := firstStandoutDetail(g.ConstructionDetails); detail != "" {
					signatures = append(signatures, types.SignaturePiece{
						GarmentType: g.Type,
						Detail:      detail,
						Confidence:  d.OverallConfidence,
					})
				}
			}
		}

		confidenceSum += d.OverallConfidence
		completenessSum += d.CompletenessPercentage
	}

	count := len(descriptors)

	profile := &types.StyleProfile{
		PortfolioID:             portfolioID,
		UserID:                  userID,
		GarmentDistribution:     garmentDist,
		ColorDistribution:       colorDist,
		FabricDistribution:      fabricDist,
		SilhouetteDistribution:  silhouetteDist,
		LightingDistribution:    lightingDist,
		CameraDistribution:      cameraDist,
		BackgroundDistribution:  backgroundDist,
		AestheticThemes:         topThemes(themeCounts),
		ConstructionPatterns:    topConstructionDetails(constructionCounts),
		SignaturePieces:         signatures,
		TotalImages:             count,
		AvgConfidence:           clampRescaled(safeMean(confidenceSum, count), 1, 0, 9.999),
		AvgCompleteness:         clampRescaled(safeMean(completenessSum, count), 100, 0, 999.99),
	}
	profile.SummaryText = summaryText(count, profile)

	return profile
}

// splitThemeLabels splits a free-text mood/aesthetic label on "/" and ",",
// lowercases, and drops generic terms.
func splitThemeLabels(raw string) []string {
	if raw == "" {
		return nil
	}

	var themes []string

	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == ',' }) {
		term := strings.ToLower(strings.TrimSpace(part))
		if term == "" {
			continue
		}

		if _, generic := genericThemeTerms[term]; generic {
			continue
		}

		themes = append(themes, term)
	}

	return themes
}

func topThemes(counts map[string]int) []string {
	type kv struct {
		term  string
		count int
	}

	var kept []kv

	for term, count := range counts {
		if count < themeMinFrequency {
			continue
		}

		kept = append(kept, kv{term, count})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].count != kept[j].count {
			return kept[i].count > kept[j].count
		}
		return kept[i].term < kept[j].term
	})

	themes := make([]string, 0, len(kept))
	for _, k := range kept {
		themes = append(themes, capitalize(k.term))
	}

	return themes
}

func topConstructionDetails(counts map[string]int) []types.ConstructionPattern {
	patterns := make([]types.ConstructionPattern, 0, len(counts))
	for detail, freq := range counts {
		patterns = append(patterns, types.ConstructionPattern{Detail: detail, Frequency: freq})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].Detail < patterns[j].Detail
	})

	if len(patterns) > topConstructionPatterns {
		patterns = patterns[:topConstructionPatterns]
	}

	return patterns
}

func firstStandoutDetail(details []string) string {
	if len(details) == 0 {
		return ""
	}

	return details[0]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func safeMean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// clampRescaled guards against NaN and against an input that was
// mistakenly expressed on the wrong scale: a confidence or completeness
// value more than 10x its natural range (naturalMax is 1 for confidence,
// 100 for completeness) is assumed to be 100x too large (for confidence, a
// percentage where a fraction was expected) and divided by 100 before
// clamping to the storage bounds [lo, hi].
func clampRescaled(v, naturalMax, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}

	if v > naturalMax*10 {
		v = v / 100
	}

	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

func summaryText(count int, p *types.StyleProfile) string {
	themes := "your signature looks"
	if len(p.AestheticThemes) > 0 {
		top := p.AestheticThemes
		if len(top) > 2 {
			top = top[:2]
		}
		themes = strings.Join(top, " and ")
	}

	garment, garmentShare := dominantShare(p.GarmentDistribution)
	colors := dominantNames(p.ColorDistribution, 2)
	fabrics := dominantNames(p.FabricDistribution, 2)

	return fmt.Sprintf(
		"Based on %d images, your style includes %s. %d%% of pieces are %s, favoring %s in %s.",
		count, themes, garmentShare, garment, strings.Join(colors, " and "), strings.Join(fabrics, " and "),
	)
}

func dominantShare(dist types.Distribution) (string, int) {
	name, count, total := dominant(dist)
	if total == 0 {
		return "assorted pieces", 0
	}

	return name, int(math.Round(float64(count) / float64(total) * 100))
}

func dominant(dist types.Distribution) (string, int, int) {
	var name string
	var best, total int

	for k, v := range dist {
		total += v
		if v > best {
			best, name = v, k
		}
	}

	return name, best, total
}

func dominantNames(dist types.Distribution, n int) []string {
	type kv struct {
		name  string
		count int
	}

	kept := make([]kv, 0, len(dist))
	for k, v := range dist {
		kept = append(kept, kv{k, v})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].count != kept[j].count {
			return kept[i].count > kept[j].count
		}
		return kept[i].name < kept[j].name
	})

	if len(kept) > n {
		kept = kept[:n]
	}

	names := make([]string, 0, len(kept))
	for _, k := range kept {
		if k.name == "" {
			continue
		}
		names = append(names, k.name)
	}

	if len(names) == 0 {
		return []string{"varied materials"}
	}

	return names
}
