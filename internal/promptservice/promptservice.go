// Package promptservice is the concrete wiring the /generate request
// handler needs: it resolves a user's active StyleProfile, draws a bandit
// sample and RLHF picks, reads C9's active coverage gaps, and hands all of
// it to C7's pure Build function, persisting and returning the result. It
// implements orchestrator.PromptProvider.
package promptservice

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/internal/promptbuilder"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// explorationRate is the probability a /generate request is treated as an
// exploration draw: the bandit sample is restricted to the least-visited
// quartile of values, widening coverage instead of exploiting the mode.
const explorationRate = 0.2

// slots are every AttributeSlot the bandit is sampled for.
var slots = []enum.AttributeSlot{
	enum.SlotGarment, enum.SlotSilhouette, enum.SlotFabric, enum.SlotColor,
	enum.SlotLighting, enum.SlotCamera, enum.SlotBackground, enum.SlotFinish,
}

// categories are every RLHFCategory a prompt draws a pick for.
var categories = []enum.RLHFCategory{
	enum.CategoryLighting, enum.CategoryComposition, enum.CategoryStyle,
	enum.CategoryQuality, enum.CategoryMood, enum.CategoryModelPose,
}

// PortfolioLookup resolves a user's active Portfolio.
type PortfolioLookup interface {
	GetActive(ctx context.Context, userID string) (*types.Portfolio, error)
}

// ProfileLookup resolves the StyleProfile computed for a Portfolio.
type ProfileLookup interface {
	GetByPortfolio(ctx context.Context, portfolioID uuid.UUID) (*types.StyleProfile, error)
}

// BanditSampler draws one value per requested slot.
type BanditSampler interface {
	Sample(ctx context.Context, userID string, slots []enum.AttributeSlot, exploration bool) (map[enum.AttributeSlot]string, error)
}

// RLHFSelector picks one token per RLHF category.
type RLHFSelector interface {
	Select(ctx context.Context, userID string, category enum.RLHFCategory) (string, error)
}

// GapLookup resolves a user's active coverage gaps.
type GapLookup interface {
	ActiveGaps(ctx context.Context, userID string) ([]*types.AttributeGap, error)
}

// PromptRepo persists the rendered PromptSpec.
type PromptRepo interface {
	Create(ctx context.Context, spec *types.PromptSpec) error
}

// Service implements orchestrator.PromptProvider against the live C4/C5/
// C6/C9 components.
type Service struct {
	portfolios PortfolioLookup
	profiles   ProfileLookup
	bandit     BanditSampler
	rlhf       RLHFSelector
	gaps       GapLookup
	prompts    PromptRepo
	logger     *zap.Logger
}

// New creates a Service.
func New(
	portfolios PortfolioLookup, profiles ProfileLookup, bandit BanditSampler,
	rlhf RLHFSelector, gaps GapLookup, prompts PromptRepo, logger *zap.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		profiles:   profiles,
		bandit:     bandit,
		rlhf:       rlhf,
		gaps:       gaps,
		prompts:    prompts,
		logger:     logger.Named("promptservice"),
	}
}

// NextPrompt implements orchestrator.PromptProvider.
func (s *Service) NextPrompt(ctx context.Context, userID string, opts promptbuilder.Options) (*types.PromptSpec, error) {
	portfolio, err := s.portfolios.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve active portfolio for %s: %w", userID, err)
	}

	profile, err := s.profiles.GetByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve style profile for portfolio %s: %w", portfolio.ID, err)
	}

	exploration := rand.Float64() < explorationRate
	opts.IsExploration = exploration

	banditPicks, err := s.bandit.Sample(ctx, userID, slots, exploration)
	if err != nil {
		return nil, fmt.Errorf("sample bandit slots for %s: %w", userID, err)
	}

	rlhfPicks := make(map[enum.RLHFCategory]string, len(categories))

	for _, category := range categories {
		token, err := s.rlhf.Select(ctx, userID, category)
		if err != nil {
			return nil, fmt.Errorf("select rlhf token for %s/%s: %w", userID, category, err)
		}

		rlhfPicks[category] = token
	}

	gaps, err := s.gaps.ActiveGaps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve active coverage gaps for %s: %w", userID, err)
	}

	spec, _ := promptbuilder.Build(userID, profile, banditPicks, rlhfPicks, gaps, opts)

	if err := s.prompts.Create(ctx, spec); err != nil {
		return nil, fmt.Errorf("persist prompt spec for %s: %w", userID, err)
	}

	return spec, nil
}
