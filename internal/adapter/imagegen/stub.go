package imagegen

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aureuma/styleengine/internal/database/types"
)

// Stub is an illustrative Adapter implementation: a deterministic,
// in-process generator useful for tests and local development without a
// real provider configured. It synthesizes a seed from a counter and
// derives a placeholder URL from that seed (not from the PromptSpec),
// passing it through Normalize in the single {"url": ...} shape.
type Stub struct {
	counter       atomic.Int64
	baseCents     int
	failOnGarment string
}

// NewStub creates a Stub charging baseCentsPerImage per standard-tier
// image. failOnGarment, if non-empty, makes Generate fail for any
// PromptSpec whose Garment matches it, to exercise C8's per-item failure
// isolation in tests.
func NewStub(baseCentsPerImage int, failOnGarment string) *Stub {
	return &Stub{baseCents: baseCentsPerImage, failOnGarment: failOnGarment}
}

// Initialize implements Adapter.
func (s *Stub) Initialize(context.Context) error { return nil }

// HealthCheck implements Adapter.
func (s *Stub) HealthCheck(context.Context) error { return nil }

// CalculateCost implements Adapter.
func (s *Stub) CalculateCost(params map[string]any, count int) int {
	tier, _ := params["qualityTier"].(string)
	return CalculateCostCents(s.baseCents, count, tier)
}

// Generate implements Adapter. It round-trips its raw response through
// Normalize the way a real SDK wrapper would, rather than constructing a
// Result directly, so the defensive-parsing path is always exercised.
func (s *Stub) Generate(_ context.Context, spec *types.PromptSpec, settings Settings) (Result, error) {
	if s.failOnGarment != "" && spec != nil && spec.Garment == s.failOnGarment {
		return Result{}, fmt.Errorf("stub provider: simulated failure for garment %q", spec.Garment)
	}

	seed := s.counter.Add(1)

	raw := map[string]any{
		"url": fmt.Sprintf("https://stub-provider.local/gen/%d.png", seed),
	}

	url, _, err := Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	return Result{
		URL:       url,
		Seed:      seed,
		CostCents: s.CalculateCost(map[string]any{"qualityTier": settings.QualityTier}, 1),
		Params:    map[string]any{"width": settings.Width, "height": settings.Height},
	}, nil
}
