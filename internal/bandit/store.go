// Package bandit maintains a per-(user, slot, value) Beta(alpha, beta)
// posterior and samples a PromptSpec value per slot via Thompson
// Sampling: automatic exploration while alpha+beta is small, exploitation
// as it grows.
package bandit

import (
	"context"
	"fmt"
	"sort"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"go.uber.org/zap"
)

// explorationQuartile is the fraction of least-visited values sampled
// from when a request sets IsExploration.
const explorationQuartile = 0.25

// StateStore reads and writes BanditState rows.
type StateStore interface {
	GetSlot(ctx context.Context, userID string, slot enum.AttributeSlot) ([]*types.BanditState, error)
	SeedUniform(ctx context.Context, userID string, slot enum.AttributeSlot, value string) error
	Update(ctx context.Context, userID string, slot enum.AttributeSlot, value string, success bool) error
}

// Store is the C5 bandit component.
type Store struct {
	states StateStore
	logger *zap.Logger
}

// New creates a Store.
func New(states StateStore, logger *zap.Logger) *Store {
	return &Store{states: states, logger: logger.Named("bandit")}
}

// SeedFromProfile seeds a uniform Beta(1,1) prior for every value a slot's
// StyleProfile distribution allows, when no posterior exists yet. Cold
// start: no prior data means uniform sampling from image #1.
func (s *Store) SeedFromProfile(ctx context.Context, userID string, slot enum.AttributeSlot, values []string) error {
	for _, v := range values {
		if v == "" {
			continue
		}

		if err := s.states.SeedUniform(ctx, userID, slot, v); err != nil {
			return fmt.Errorf("seed bandit prior %s/%s/%s: %w", userID, slot, v, err)
		}
	}

	return nil
}

// Sample draws one value per requested slot via Thompson Sampling. When
// exploration is true, the draw is restricted to the bottom quartile of
// values by visit count (alpha+beta), widening coverage.
func (s *Store) Sample(ctx context.Context, userID string, slots []enum.AttributeSlot, exploration bool) (map[enum.AttributeSlot]string, error) {
	result := make(map[enum.AttributeSlot]string, len(slots))

	for _, slot := range slots {
		states, err := s.states.GetSlot(ctx, userID, slot)
		if err != nil {
			return nil, fmt.Errorf("get bandit slot %s for %s: %w", slot, userID, err)
		}

		if len(states) == 0 {
			continue
		}

		if exploration {
			states = bottomQuartileByVisits(states)
		}

		result[slot] = drawThompson(states)
	}

	return result, nil
}

// Update applies a feedback observation to one (slot, value) posterior.
// A positive reward adds 1 to alpha and any other reward adds 1 to beta;
// the reward's magnitude does not change the size of the step.
func (s *Store) Update(ctx context.Context, userID string, slot enum.AttributeSlot, value string, reward float64) error {
	if err := s.states.Update(ctx, userID, slot, value, reward > 0); err != nil {
		return fmt.Errorf("update bandit %s/%s/%s: %w", userID, slot, value, err)
	}

	return nil
}

// Snapshot returns the current Beta posteriors for every slot, for
// inspection and analytics.
func (s *Store) Snapshot(ctx context.Context, userID string) (map[enum.AttributeSlot][]*types.BanditState, error) {
	snapshot := make(map[enum.AttributeSlot][]*types.BanditState, len(enum.AttributeSlots))

	for _, slot := range enum.AttributeSlots {
		states, err := s.states.GetSlot(ctx, userID, slot)
		if err != nil {
			return nil, fmt.Errorf("snapshot bandit slot %s for %s: %w", slot, userID, err)
		}

		snapshot[slot] = states
	}

	return snapshot, nil
}

func drawThompson(states []*types.BanditState) string {
	best := states[0]
	bestSample := sampleBeta(best.Alpha, best.Beta)

	for _, st := range states[1:] {
		sample := sampleBeta(st.Alpha, st.Beta)
		if sample > bestSample {
			best, bestSample = st, sample
		}
	}

	return best.Value
}

func bottomQuartileByVisits(states []*types.BanditState) []*types.BanditState {
	sorted := make([]*types.BanditState, len(states))
	copy(sorted, states)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Alpha+sorted[i].Beta < sorted[j].Alpha+sorted[j].Beta
	})

	cut := int(float64(len(sorted))*explorationQuartile + 0.999)
	if cut < 1 {
		cut = 1
	}
	if cut > len(sorted) {
		cut = len(sorted)
	}

	return sorted[:cut]
}
