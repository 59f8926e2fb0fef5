package imagegen

import (
	"context"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_StringURL(t *testing.T) {
	url, data, err := Normalize("https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", url)
	assert.Nil(t, data)
}

func TestNormalize_RawBytes(t *testing.T) {
	_, data, err := Normalize([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestNormalize_MapWithURL(t *testing.T) {
	url, _, err := Normalize(map[string]any{"url": "https://example.com/b.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.png", url)
}

func TestNormalize_ArrayUnwrapsFirstElement(t *testing.T) {
	url, _, err := Normalize([]any{"https://example.com/c.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/c.png", url)
}

func TestNormalize_UnrecognizedShapeErrors(t *testing.T) {
	_, _, err := Normalize(42)
	require.ErrorIs(t, err, ErrUnrecognizedResponseShape)
}

func TestCalculateCostCents_AppliesQualityModifier(t *testing.T) {
	assert.Equal(t, 100, CalculateCostCents(100, 1, "standard"))
	assert.Equal(t, 150, CalculateCostCents(100, 1, "hd"))
	assert.Equal(t, 60, CalculateCostCents(100, 1, "draft"))
}

func TestCalculateCostCents_NegativeCountClampsToZero(t *testing.T) {
	assert.Equal(t, 0, CalculateCostCents(100, -5, "standard"))
}

func TestStub_GeneratesDeterministicallyIncreasingSeeds(t *testing.T) {
	stub := NewStub(10, "")
	spec := &types.PromptSpec{Garment: "blazer"}

	first, err := stub.Generate(context.Background(), spec, Settings{QualityTier: "standard"})
	require.NoError(t, err)

	second, err := stub.Generate(context.Background(), spec, Settings{QualityTier: "standard"})
	require.NoError(t, err)

	assert.Greater(t, second.Seed, first.Seed)
	assert.Equal(t, 10, first.CostCents)
}

func TestStub_FailsForConfiguredGarment(t *testing.T) {
	stub := NewStub(10, "dress")

	_, err := stub.Generate(context.Background(), &types.PromptSpec{Garment: "dress"}, Settings{})
	require.Error(t, err)
}
