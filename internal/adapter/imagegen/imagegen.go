// Package imagegen defines the outbound image-generation adapter contract
// C8 fans out across, plus a normalizer for the several response shapes a
// provider SDK may hand back.
package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/types"
)

// ErrUnrecognizedResponseShape is returned when a provider response
// matches none of the shapes Normalize understands.
var ErrUnrecognizedResponseShape = errors.New("imagegen: unrecognized provider response shape")

// Settings controls one generation call: dimensions, seed, and quality tier
// (adapters translate QualityTier into provider-specific cost modifiers).
type Settings struct {
	Width       int
	Height      int
	Seed        *int64
	QualityTier string
}

// Result is one adapter's normalized output for a single image.
type Result struct {
	URL       string
	Bytes     []byte
	Seed      int64
	CostCents int
	Params    map[string]any
}

// Adapter wraps one external image-generation model (spec.md §4.8). The
// core is agnostic to which provider an Adapter talks to; multiple
// Adapters are composable behind the same interface.
type Adapter interface {
	// Initialize prepares the adapter (auth, warm connections) once before
	// first use.
	Initialize(ctx context.Context) error
	// Generate synthesizes one image from spec under settings.
	Generate(ctx context.Context, spec *types.PromptSpec, settings Settings) (Result, error)
	// HealthCheck reports whether the adapter's backend is reachable.
	HealthCheck(ctx context.Context) error
	// CalculateCost estimates the cost, in cents, of generating count
	// images with the given provider params.
	CalculateCost(params map[string]any, count int) int
}

// Normalize defensively interprets a raw provider response into a URL or
// raw bytes. Providers have been observed to return: a bare string URL, a
// slice whose first element is one of the other shapes, a map carrying a
// "url" key, or a byte slice of already-decoded image data. Anything else
// is rejected rather than guessed at.
func Normalize(raw any) (url string, data []byte, err error) {
	switch v := raw.(type) {
	case string:
		return v, nil, nil
	case []byte:
		return "", v, nil
	case map[string]any:
		if u, ok := v["url"].(string); ok {
			return u, nil, nil
		}

		if b, ok := v["bytes"].([]byte); ok {
			return "", b, nil
		}

		return "", nil, fmt.Errorf("%w: map missing url/bytes", ErrUnrecognizedResponseShape)
	case []any:
		if len(v) == 0 {
			return "", nil, fmt.Errorf("%w: empty array", ErrUnrecognizedResponseShape)
		}

		return Normalize(v[0])
	default:
		return "", nil, fmt.Errorf("%w: %T", ErrUnrecognizedResponseShape, raw)
	}
}

// CalculateCostCents is the shared cost formula: count times a per-image
// base rate, with a quality-tier modifier. Never returns a value that
// could have come from an invalid/NaN computation — integer arithmetic
// throughout.
func CalculateCostCents(baseCentsPerImage int, count int, qualityTier string) int {
	if count < 0 {
		count = 0
	}

	modifier := qualityModifierPermille(qualityTier)

	return baseCentsPerImage * count * modifier / 1000
}

// qualityModifierPermille returns a per-mille multiplier so cost math
// stays in integers: standard=1000 (1.0x), hd=1500 (1.5x), draft=600 (0.6x).
func qualityModifierPermille(tier string) int {
	switch tier {
	case "hd":
		return 1500
	case "draft":
		return 600
	default:
		return 1000
	}
}
