package extract_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/aureuma/styleengine/internal/extract"
	"github.com/aureuma/styleengine/internal/setup/config"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubImageSource struct{}

func (stubImageSource) Fetch(context.Context, string) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)

	return img, nil
}

type scriptedChat struct {
	responses []string
	calls     int
}

func (s *scriptedChat) New(context.Context, openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	content := s.responses[min(s.calls, len(s.responses)-1)]
	s.calls++

	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func (s *scriptedChat) NewStreaming(
	context.Context, openai.ChatCompletionNewParams,
) *ssestream.Stream[openai.ChatCompletionChunk] {
	return nil
}

const validDescriptorJSON = `{
  "garments": [
    {
      "type": "blazer",
      "silhouette": "tailored",
      "collar": "notched lapel",
      "fabric": {"primaryMaterial": "wool suiting"},
      "colorPalette": [{"colorName": "navy", "placement": "overall"}],
      "constructionDetails": ["two-button closure"]
    }
  ],
  "metadata": {"overallConfidence": 0.9, "completenessPercentage": 85}
}`

const lowConfidenceDescriptorJSON = `{
  "garments": [
    {"type": "coat", "silhouette": "relaxed", "fabric": {"primaryMaterial": "wool"}}
  ],
  "metadata": {"overallConfidence": 0.1, "completenessPercentage": 40}
}`

func newTestExtractor(t *testing.T, chat *scriptedChat) *extract.Extractor {
	t.Helper()

	cfg := config.AnalysisConfig{
		Concurrency:                2,
		ConfidenceRetryThreshold:   0.5,
		CompletenessRetryThreshold: 50,
		MaxRetries:                 3,
		PromptVersion:              "v1",
	}

	return extract.NewExtractor(stubImageSource{}, chat, taxonomy.NewTaxonomy(nil), cfg, "vision-model", zaptest.NewLogger(t))
}

func TestExtract_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{responses: []string{validDescriptorJSON}}
	ex := newTestExtractor(t, chat)

	descriptor, err := ex.Extract(context.Background(), "images/a.webp")
	require.NoError(t, err)
	assert.Equal(t, "v1", descriptor.PromptVersion)
	assert.Equal(t, "blazer", descriptor.Garments[0].Type)
	assert.Equal(t, 1, chat.calls)
}

func TestExtract_RetriesOnLowConfidenceThenSucceeds(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{responses: []string{lowConfidenceDescriptorJSON, validDescriptorJSON}}
	ex := newTestExtractor(t, chat)

	descriptor, err := ex.Extract(context.Background(), "images/b.webp")
	require.NoError(t, err)
	assert.Equal(t, "blazer", descriptor.Garments[0].Type)
	assert.Equal(t, 2, chat.calls)
}

func TestExtract_ExhaustsRetriesAndFails(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{responses: []string{lowConfidenceDescriptorJSON}}
	ex := newTestExtractor(t, chat)

	descriptor, err := ex.Extract(context.Background(), "images/c.webp")
	require.Error(t, err)
	assert.Nil(t, descriptor)
	assert.Equal(t, 3, chat.calls)
}

func TestExtract_MalformedJSONTriggersRetry(t *testing.T) {
	t.Parallel()

	chat := &scriptedChat{responses: []string{"not json", validDescriptorJSON}}
	ex := newTestExtractor(t, chat)

	descriptor, err := ex.Extract(context.Background(), "images/d.webp")
	require.NoError(t, err)
	assert.Equal(t, "blazer", descriptor.Garments[0].Type)
}

func TestExtract_BlazerWithShirtCollarIsReclassifiedOnSuccess(t *testing.T) {
	t.Parallel()

	shirtCollarBlazer := `{
		"garments": [
			{
				"type": "blazer",
				"silhouette": "tailored",
				"collar": "shirt collar",
				"fabric": {"primaryMaterial": "cotton twill"},
				"colorPalette": [{"colorName": "white", "placement": "overall"}]
			}
		],
		"metadata": {"overallConfidence": 0.9, "completenessPercentage": 90}
	}`

	chat := &scriptedChat{responses: []string{shirtCollarBlazer}}
	ex := newTestExtractor(t, chat)

	descriptor, err := ex.Extract(context.Background(), "images/e.webp")
	require.NoError(t, err)
	assert.Equal(t, "shirt jacket", descriptor.Garments[0].Type)
}
