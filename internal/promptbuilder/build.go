// Package promptbuilder renders a PromptSpec and its text from a
// StyleProfile, an optional free-text command, a bandit-sampled slot
// selection, and an RLHF-learned pose. Pure string assembly; no model call.
package promptbuilder

import (
	"strings"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
)

// defaultMaxWords is the hard ceiling on the rendered prompt when
// Options.MaxWords is unset.
const defaultMaxWords = 50

// signatureFrequencyThreshold is the minimum SignaturePiece confidence at
// which a value matching that piece's garment type counts as a signature
// and its weight is boosted. Only garment types are matched; how often a
// value occurs in the profile's distributions is not consulted.
const signatureFrequencyThreshold = 0.3

// slotDefaultWeight is each slot's base importance weight before boosts.
var slotDefaultWeight = map[enum.AttributeSlot]float64{
	enum.SlotGarment:    0.8,
	enum.SlotColor:      0.7,
	enum.SlotFabric:     0.7,
	enum.SlotLighting:   0.7,
	enum.SlotSilhouette: 0.6,
	enum.SlotCamera:     0.6,
	enum.SlotFinish:     0.5,
	enum.SlotBackground: 0.5,
	enum.SlotDetails:    0.4,
}

// Options configures one Build call.
type Options struct {
	Command       string
	IsExploration bool
	MaxWords      int
}

// Metadata reports how a PromptSpec was derived.
type Metadata struct {
	TokensUsed       int
	Interpretation   string
	Specificity      Specificity
	Creativity       float64
	BrandDNAStrength float64
	Truncated        bool
}

// Build assembles a PromptSpec and its rendered/negative text.
func Build(
	userID string,
	profile *types.StyleProfile,
	bandit map[enum.AttributeSlot]string,
	rlhfPickByCategory map[enum.RLHFCategory]string,
	gaps []*types.AttributeGap,
	opts Options,
) (*types.PromptSpec, Metadata) {
	specificity := ClassifySpecificity(opts.Command)
	tuning := specificityTable[specificity]

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	gapBySlot := indexGaps(gaps)

	value := func(slot enum.AttributeSlot) string {
		if v, ok := bandit[slot]; ok && v != "" {
			return v
		}

		return dominantValue(profileDistribution(profile, slot))
	}

	garment := value(enum.SlotGarment)
	silhouette := value(enum.SlotSilhouette)
	fabric := value(enum.SlotFabric)
	color := value(enum.SlotColor)
	lighting := value(enum.SlotLighting)
	camera := value(enum.SlotCamera)
	background := value(enum.SlotBackground)
	finish := value(enum.SlotFinish)

	weightMap := map[string]float64{}
	weightFor := func(slot enum.AttributeSlot, text string) float64 {
		w := slotDefaultWeight[slot]

		if isSignature(profile, text) {
			w = clampWeight(w + 0.2)
		}

		if gap, ok := gapBySlot[slot]; ok {
			w = clampWeight(w * gap.RecommendedBoost)
		}

		weightMap[string(slot)] = w

		return w
	}

	garmentPhrase := strings.TrimSpace(silhouette + " " + garment)

	segments := []segment{
		{text: clusterPrefix(dominantCluster(profile)), bare: true, priority: priorityCore, weight: 1.0},
		{text: garmentPhrase, weight: weightFor(enum.SlotGarment, garment), priority: priorityCore},
		{text: fabric, weight: weightFor(enum.SlotFabric, fabric), priority: priorityCore},
		{text: finish, weight: weightFor(enum.SlotFinish, finish), bare: true, priority: priorityCore},
		{text: color, weight: weightFor(enum.SlotColor, color), priority: priorityCore},
		{text: modelPoseBlock(rlhfPickByCategory[enum.CategoryModelPose]), bare: true, priority: priorityCore},
		{text: lighting, weight: weightFor(enum.SlotLighting, lighting), priority: priorityRLHF},
		{text: camera, weight: weightFor(enum.SlotCamera, camera), priority: priorityRLHF},
		{text: background, weight: weightFor(enum.SlotBackground, background), bare: true, priority: priorityRLHF},
	}

	var details []string
	if v := rlhfPickByCategory[enum.CategoryStyle]; v != "" {
		details = append(details, v)
	}
	if v := rlhfPickByCategory[enum.CategoryMood]; v != "" {
		details = append(details, v)
	}
	if v := rlhfPickByCategory[enum.CategoryComposition]; v != "" {
		details = append(details, v)
	}

	rlhfPicks := map[string]string{}
	for category, pick := range rlhfPickByCategory {
		if pick != "" {
			rlhfPicks[string(category)] = pick
		}
	}

	detailsText := strings.Join(details, ", ")
	segments = append(segments,
		segment{text: detailsText, weight: weightFor(enum.SlotDetails, detailsText), bare: true, priority: priorityUser},
	)

	if opts.Command != "" {
		segments = append(segments, segment{text: opts.Command, bare: true, priority: priorityUser})
	}

	if opts.IsExploration {
		if v := bandit[enum.SlotDetails]; v != "" {
			segments = append(segments, segment{text: v, bare: true, priority: priorityExploratory})
		}
	}

	renderedText, truncated := renderSegments(segments, maxWords)

	spec := &types.PromptSpec{
		UserID:        userID,
		Garment:       garment,
		Silhouette:    silhouette,
		ColorPalette:  []string{color},
		Fabric:        fabric,
		Finish:        finish,
		Lighting:      types.Lighting{Type: lighting},
		Camera:        types.Camera{Angle: camera},
		Background:    background,
		Details:       details,
		ClusterLabel:  dominantCluster(profile),
		WeightMap:     weightMap,
		RLHFPicks:     rlhfPicks,
		Creativity:    tuning.Creativity,
		IsExploration: opts.IsExploration,
		RenderedText:  renderedText,
		NegativeText:  mandatoryNegativeTerms,
		Truncated:     truncated,
	}

	metadata := Metadata{
		TokensUsed:       len(strings.Fields(renderedText)),
		Interpretation:   string(specificity),
		Specificity:      specificity,
		Creativity:       tuning.Creativity,
		BrandDNAStrength: tuning.BrandDNAStrength,
		Truncated:        truncated,
	}

	return spec, metadata
}

func indexGaps(gaps []*types.AttributeGap) map[enum.AttributeSlot]*types.AttributeGap {
	index := make(map[enum.AttributeSlot]*types.AttributeGap, len(gaps))
	for _, g := range gaps {
		if !g.Active {
			continue
		}

		index[g.Slot] = g
	}

	return index
}

func profileDistribution(profile *types.StyleProfile, slot enum.AttributeSlot) types.Distribution {
	if profile == nil {
		return nil
	}

	switch slot {
	case enum.SlotGarment:
		return profile.GarmentDistribution
	case enum.SlotColor:
		return profile.ColorDistribution
	case enum.SlotFabric:
		return profile.FabricDistribution
	case enum.SlotSilhouette:
		return profile.SilhouetteDistribution
	case enum.SlotLighting:
		return profile.LightingDistribution
	case enum.SlotCamera:
		return profile.CameraDistribution
	case enum.SlotBackground:
		return profile.BackgroundDistribution
	default:
		return nil
	}
}

func dominantValue(dist types.Distribution) string {
	var name string
	var best int

	for k, v := range dist {
		if k == "" {
			continue
		}

		if v > best {
			best, name = v, k
		}
	}

	return name
}

func dominantCluster(profile *types.StyleProfile) string {
	if profile == nil || len(profile.AestheticThemes) == 0 {
		return ""
	}

	return profile.AestheticThemes[0]
}

func isSignature(profile *types.StyleProfile, value string) bool {
	if profile == nil || value == "" || profile.TotalImages == 0 {
		return false
	}

	for _, piece := range profile.SignaturePieces {
		if piece.GarmentType == value && piece.Confidence >= signatureFrequencyThreshold {
			return true
		}
	}

	return false
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}

	return w
}
