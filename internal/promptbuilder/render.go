package promptbuilder

import (
	"fmt"
	"strings"
)

// priority ranks segments for truncation, highest first. When the
// rendered text exceeds the word budget, the lowest priority is dropped first.
type priority int

const (
	priorityCore priority = iota
	priorityRLHF
	priorityUser
	priorityExploratory
)

// budgetShare lists a fraction of the word ceiling per priority: core
// 60%, RLHF-learned modifiers 25%, user modifiers 10%, exploratory 5%.
// renderSegments does not read it: the budget is enforced only by dropping
// whole segments, lowest priority first.
var budgetShare = map[priority]float64{
	priorityCore:        0.60,
	priorityRLHF:        0.25,
	priorityUser:        0.10,
	priorityExploratory: 0.05,
}

// segment is one renderable unit of the prompt: a piece of text with its
// slot weight (governing bracket syntax) and its budget priority.
type segment struct {
	text     string
	weight   float64
	priority priority
	bare     bool // true for segments that are never bracketed (prefixes, bare-weight slots)
}

// defaultModelPoseTokens is the mandatory model/pose block rendered when
// no learned pose overrides it.
const defaultModelPoseTokens = "(three-quarter length shot:1.3), (model facing camera:1.3), (front-facing pose:1.2)"

// nonFrontPoses require the model/pose block to be overridden back to a
// 3/4 front angle rather than rendered literally.
var nonFrontPoses = map[string]struct{}{
	"profile": {}, "side": {}, "back": {},
}

// mandatoryNegativeTerms are always present in the negative prompt.
const mandatoryNegativeTerms = "back view, rear view, turned away"

// bracket renders a weighted segment using the fixed threshold rule:
// w>0.8 -> [text], w>0.5 -> (text), else bare text.
func bracket(text string, weight float64) string {
	switch {
	case weight > 0.8:
		return "[" + text + "]"
	case weight > 0.5:
		return "(" + text + ")"
	default:
		return text
	}
}

func modelPoseBlock(learnedPose string) string {
	pose := strings.ToLower(strings.TrimSpace(learnedPose))
	if pose == "" {
		return defaultModelPoseTokens
	}

	if _, nonFront := nonFrontPoses[pose]; nonFront {
		return "(3/4 front angle:1.3), (model facing camera:1.3), (front-facing pose:1.2)"
	}

	return defaultModelPoseTokens
}

func clusterPrefix(clusterLabel string) string {
	if clusterLabel == "" {
		return ""
	}

	return fmt.Sprintf("in the user's signature '%s' mode:", clusterLabel)
}

// renderSegments assembles rendered text under the hard word budget,
// dropping lowest-priority segments first when over budget. Segments are
// assumed to already be in the required slot order.
func renderSegments(segments []segment, maxWords int) (string, bool) {
	kept := make([]segment, len(segments))
	copy(kept, segments)

	for totalWords(kept) > maxWords {
		idx := lowestPriorityDroppableIndex(kept)
		if idx < 0 {
			break
		}

		kept = append(kept[:idx], kept[idx+1:]...)
	}

	truncated := len(kept) != len(segments)

	parts := make([]string, 0, len(kept))

	for _, seg := range kept {
		if seg.text == "" {
			continue
		}

		if seg.bare {
			parts = append(parts, seg.text)
			continue
		}

		parts = append(parts, bracket(seg.text, seg.weight))
	}

	return strings.Join(parts, ", "), truncated
}

func totalWords(segments []segment) int {
	total := 0
	for _, seg := range segments {
		total += len(strings.Fields(seg.text))
	}

	return total
}

// lowestPriorityDroppableIndex picks the segment to drop next: the
// lowest-priority exploratory, user or RLHF segment, the earliest one on a
// tie. When only core segments remain it returns the last of them, which in
// Build's order is the model/pose block; no core segment is exempt.
func lowestPriorityDroppableIndex(segments []segment) int {
	worst := -1

	for i, seg := range segments {
		if seg.priority != priorityExploratory && seg.priority != priorityUser && seg.priority != priorityRLHF {
			continue
		}

		if worst == -1 || segments[i].priority > segments[worst].priority {
			worst = i
		}
	}

	if worst != -1 {
		return worst
	}

	// Nothing outside core is droppable; fall back to the last core
	// segment so the budget is still enforced as a hard ceiling.
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].priority == priorityCore {
			return i
		}
	}

	return -1
}
