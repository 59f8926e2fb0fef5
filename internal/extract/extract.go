// Package extract turns one outfit photograph into a validated Descriptor
// via a single vision-LLM call, bounded retry, and taxonomy validation.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"github.com/aureuma/styleengine/internal/ai/client"
	"github.com/aureuma/styleengine/internal/setup/config"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/aureuma/styleengine/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrNoDescriptor is returned when every retry attempt failed to produce an
// acceptable descriptor; the caller should mark the image failed and move on.
var ErrNoDescriptor = errors.New("extract: no descriptor produced after retries")

// descriptorSchema is the structured-output schema every extraction call is
// bound to; it is built once from the taxonomy.Descriptor shape.
var descriptorSchema = utils.GenerateSchema[taxonomy.Descriptor]()

// ImageSource resolves a storage key to decoded image content. Production
// wiring is an object-store adapter; tests substitute an in-memory stub.
type ImageSource interface {
	Fetch(ctx context.Context, storageKey string) (image.Image, error)
}

// Extractor implements C2: one image in, one validated Descriptor out.
type Extractor struct {
	images   ImageSource
	chat     client.ChatCompletions
	taxonomy *taxonomy.Taxonomy
	sem      *semaphore.Weighted
	logger   *zap.Logger

	model         string
	promptVersion string

	confidenceFloor   float64
	completenessFloor float64
	maxAttempts       int
}

// NewExtractor creates an Extractor bounded to cfg.Concurrency concurrent
// vision calls.
func NewExtractor(
	images ImageSource, chat client.ChatCompletions, tax *taxonomy.Taxonomy,
	cfg config.AnalysisConfig, model string, logger *zap.Logger,
) *Extractor {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	return &Extractor{
		images:            images,
		chat:              chat,
		taxonomy:          tax,
		sem:               semaphore.NewWeighted(int64(concurrency)),
		logger:            logger.Named("extract"),
		model:             model,
		promptVersion:     cfg.PromptVersion,
		confidenceFloor:   cfg.ConfidenceRetryThreshold,
		completenessFloor: cfg.CompletenessRetryThreshold,
		maxAttempts:       maxAttempts,
	}
}

// Extract analyzes the image at storageKey and returns a validated
// Descriptor. It is the unit of parallelism for C3: safe to call
// concurrently, self-bounded by the Extractor's semaphore.
func (e *Extractor) Extract(ctx context.Context, storageKey string) (*taxonomy.Descriptor, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire analysis slot: %w", err)
	}
	defer e.sem.Release(1)

	img, err := e.images.Fetch(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch image %q: %w", storageKey, err)
	}

	imagePart, err := encodeImagePart(img)
	if err != nil {
		return nil, fmt.Errorf("encode image %q: %w", storageKey, err)
	}

	var (
		descriptor *taxonomy.Descriptor
		lastReason string
		attempt    int
	)

	err = utils.WithRetry(ctx, func() error {
		attempt++

		candidate, reason, retryable, extractErr := e.attempt(ctx, storageKey, imagePart)
		if extractErr != nil {
			lastReason = extractErr.Error()
			return extractErr
		}

		if retryable {
			lastReason = reason
			if attempt >= e.maxAttempts {
				return nil
			}

			return fmt.Errorf("retry trigger %q on attempt %d", reason, attempt)
		}

		descriptor = candidate

		return nil
	}, utils.GetExtractionRetryOptions())

	if descriptor == nil {
		e.logger.Warn("descriptor extraction exhausted retries",
			zap.String("storageKey", storageKey),
			zap.String("lastReason", lastReason),
			zap.Int("attempts", attempt))

		return nil, fmt.Errorf("%w: %s", ErrNoDescriptor, lastReason)
	}

	return descriptor, nil
}

// attempt runs one vision call plus C1 validation, and classifies the
// result as either acceptable or subject to a retry trigger: JSON-parse
// failure, C1 unrecoverable violation, confidence or completeness below
// floor, or a generic-fabric flag.
func (e *Extractor) attempt(
	ctx context.Context, storageKey string, imagePart openai.ChatCompletionContentPartUnionParam,
) (descriptor *taxonomy.Descriptor, retryReason string, retryable bool, err error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{imagePart}),
		openai.UserMessage(requestPrompt),
	}

	resp, err := e.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "outfitDescriptor",
					Description: openai.String("Structured analysis of one outfit photograph"),
					Schema:      descriptorSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model:       e.model,
		Temperature: openai.Float(0.2),
		TopP:        openai.Float(0.1),
	})
	if err != nil {
		if errors.Is(err, utils.ErrContentBlocked) {
			return nil, "content_blocked", true, nil
		}

		return nil, "", false, fmt.Errorf("vision call: %w", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return nil, "empty_response", true, nil
	}

	var parsed taxonomy.Descriptor
	if err := sonic.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		e.logger.Debug("descriptor JSON parse failure",
			zap.String("storageKey", storageKey), zap.Error(err))

		return nil, "json_parse_failure", true, nil
	}

	parsed.PromptVersion = e.promptVersion

	corrected, corrections, ok := e.taxonomy.Validate(&parsed)
	if !ok {
		return nil, "consistency_unrecoverable", true, nil
	}

	for _, c := range corrections {
		if c.RuleID == "fabric_specificity" {
			return nil, "generic_fabric", true, nil
		}
	}

	if corrected.Metadata.OverallConfidence < e.confidenceFloor {
		return nil, "low_confidence", true, nil
	}

	if corrected.Metadata.CompletenessPercentage < e.completenessFloor {
		return nil, "low_completeness", true, nil
	}

	return corrected, "", false, nil
}

func encodeImagePart(img image.Image) (openai.ChatCompletionContentPartUnionParam, error) {
	buf := new(bytes.Buffer)
	if err := nativewebp.Encode(buf, img, nil); err != nil {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("webp encode: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
		URL: "data:image/webp;base64," + encoded,
	}), nil
}
