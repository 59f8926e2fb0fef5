// Package client wraps an OpenAI-compatible chat completion API with a
// circuit breaker, bounded concurrency, and retry/fallback policy suitable
// for vision and critique model calls.
package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/aureuma/styleengine/internal/setup/config"
	"github.com/aureuma/styleengine/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrInvalidResponse      = errors.New("invalid response from API")
	ErrResponseTruncated    = errors.New("response truncated at max_tokens limit")
)

// RetryCallback inspects a response/error pair from one attempt and decides
// whether the retry loop should continue. Returning a backoff.Permanent
// error stops retries immediately.
type RetryCallback func(resp *openai.ChatCompletion, err error) error

// UsageTracker records token usage and cost for billing/observability.
// Implementations are expected to be non-blocking and never return an error
// that should interrupt the calling request.
type UsageTracker interface {
	RecordUsage(ctx context.Context, model string, promptTokens, completionTokens, reasoningTokens int64, costUSD float64)
}

// NoopUsageTracker discards all usage records.
type NoopUsageTracker struct{}

// RecordUsage implements UsageTracker.
func (NoopUsageTracker) RecordUsage(context.Context, string, int64, int64, int64, float64) {}

// AIClient implements the Client interface.
type AIClient struct {
	client        *openai.Client
	breaker       *gobreaker.CircuitBreaker
	semaphore     *semaphore.Weighted
	modelMappings map[string]string
	modelPricing  map[string]config.ModelPricing
	usageTracker  UsageTracker
	logger        *zap.Logger
	blockChan     chan struct{}
}

// NewClient creates a new AIClient for a single logical model endpoint
// (vision extraction or critique parsing; callers construct one per role).
func NewClient(cfg *config.OpenAI, usageTracker UsageTracker, logger *zap.Logger) (*AIClient, error) {
	if usageTracker == nil {
		usageTracker = NoopUsageTracker{}
	}

	credentials := cfg.Username + ":" + cfg.Password
	encodedCredentials := base64.StdEncoding.EncodeToString([]byte(credentials))
	authHeader := "Basic " + encodedCredentials

	oaClient := openai.NewClient(
		option.WithHeader("Authorization", authHeader),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(60*time.Second),
		option.WithMaxRetries(0),
	)

	settings := gobreaker.Settings{
		Name:        "styleengine-ai",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &AIClient{
		client:        &oaClient,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		semaphore:     semaphore.NewWeighted(cfg.MaxConcurrent),
		modelMappings: cfg.ModelMappings,
		modelPricing:  cfg.ModelPricing,
		usageTracker:  usageTracker,
		logger:        logger.Named("ai_client"),
		blockChan:     make(chan struct{}),
	}, nil
}

// Chat returns a ChatCompletions implementation.
func (c *AIClient) Chat() ChatCompletions {
	return &chatCompletions{client: c}
}

// blockIndefinitely blocks the caller when the circuit breaker opens. A
// provider outage during generation should page a human, not silently
// degrade into repeated failed requests.
func (c *AIClient) blockIndefinitely(ctx context.Context, model string, err error) {
	c.logger.Error("circuit breaker is open, pausing indefinitely",
		zap.String("model", model),
		zap.Error(err))

	select {
	case <-c.blockChan:
		c.logger.Info("circuit breaker block released")
	case <-ctx.Done():
		c.logger.Info("shutdown requested while circuit breaker was open",
			zap.String("model", model),
			zap.Error(ctx.Err()))
	}
}

func (c *AIClient) trackUsage(ctx context.Context, modelName string, usage openai.CompletionUsage) {
	pricing, ok := c.modelPricing[modelName]
	if !ok {
		return
	}

	promptTokens := usage.PromptTokens
	completionTokens := usage.CompletionTokens
	reasoningTokens := usage.CompletionTokensDetails.ReasoningTokens

	cost := (float64(promptTokens)*pricing.Input +
		float64(completionTokens)*pricing.Completion +
		float64(reasoningTokens)*pricing.Reasoning) / 1_000_000

	c.usageTracker.RecordUsage(ctx, modelName, promptTokens, completionTokens, reasoningTokens, cost)
}

// applyModelSettings applies model settings such as Gemini safety settings.
func (c *AIClient) applyModelSettings(params *openai.ChatCompletionNewParams) {
	if !strings.Contains(strings.ToLower(params.Model), "gemini") {
		return
	}

	params.SetExtraFields(map[string]any{
		"safety_settings": geminiSafetySettings,
		"providerOptions": map[string]any{
			"gateway": map[string]any{
				"only": []string{"vertex"},
			},
		},
	})
}

// chatCompletions implements the ChatCompletions interface.
type chatCompletions struct {
	client *AIClient
}

// New makes a single chat completion request with no retry.
func (c *chatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	originalModel := params.Model

	mappedModel, ok := c.client.modelMappings[originalModel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvidersAvailable, originalModel)
	}
	params.Model = mappedModel

	c.client.applyModelSettings(&params)

	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	result, err := c.client.breaker.Execute(func() (any, error) {
		resp, err := c.client.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return resp, err
		}

		if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
			return resp, bl
		}

		return resp, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			c.client.blockIndefinitely(ctx, params.Model, err)
			return nil, fmt.Errorf("system failure - circuit breaker is open: %w", err)
		case errors.Is(err, utils.ErrContentBlocked):
			return nil, err
		default:
			c.client.logger.Warn("request failed", zap.Error(err))
			return nil, err
		}
	}

	resp := result.(*openai.ChatCompletion)
	c.client.trackUsage(ctx, originalModel, resp.Usage)

	return resp, nil
}

// NewWithRetry makes a chat completion request with retry logic.
func (c *chatCompletions) NewWithRetry(
	ctx context.Context, params openai.ChatCompletionNewParams, callback RetryCallback,
) error {
	originalModel := params.Model

	mappedModel, ok := c.client.modelMappings[originalModel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoProvidersAvailable, originalModel)
	}
	params.Model = mappedModel

	c.client.applyModelSettings(&params)

	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	var (
		attempt              uint64
		resp                 *openai.ChatCompletion
		lastErr              error
		triedWithoutThinking bool
	)

	options := utils.GetAIRetryOptions()

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		if errors.Is(lastErr, ErrResponseTruncated) && !triedWithoutThinking {
			if extraFields := params.ExtraFields(); extraFields != nil {
				if reasoning, ok := extraFields["reasoning"].(map[string]any); ok {
					if enabled, ok := reasoning["enabled"].(bool); ok && enabled {
						reasoning["enabled"] = false
						triedWithoutThinking = true
						lastErr = nil
					}
				}
			}
		}

		attempt++

		result, err := c.client.breaker.Execute(func() (any, error) {
			var execErr error

			resp, execErr = c.client.client.Chat.Completions.New(ctx, params)
			if execErr != nil {
				return resp, execErr
			}

			if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
				return resp, bl
			}

			return resp, nil
		})
		if err != nil {
			lastErr = err
			switch {
			case errors.Is(err, gobreaker.ErrOpenState):
				c.client.blockIndefinitely(ctx, params.Model, err)
				return backoff.Permanent(fmt.Errorf("system failure - circuit breaker is open: %w", err))
			case errors.Is(err, utils.ErrContentBlocked):
				return backoff.Permanent(err)
			default:
				c.client.logger.Warn("request failed, will retry",
					zap.Error(err),
					zap.String("model", params.Model),
					zap.Uint64("attempt", attempt))
			}

			if cbErr := callback(resp, err); cbErr != nil {
				permanentError := &backoff.PermanentError{}
				if errors.As(cbErr, &permanentError) {
					return backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
				}

				return cbErr
			}

			return err
		}

		resp = result.(*openai.ChatCompletion)
		if cbErr := callback(resp, nil); cbErr != nil {
			permanentError := &backoff.PermanentError{}
			if errors.As(cbErr, &permanentError) {
				return backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
			}

			return cbErr
		}

		c.client.trackUsage(ctx, originalModel, resp.Usage)

		return nil
	}

	if err := utils.WithRetry(ctx, operation, options); err != nil {
		if lastErr != nil {
			return fmt.Errorf("all retry attempts failed: %w (last error: %w)", err, lastErr)
		}

		return fmt.Errorf("all retry attempts failed: %w", err)
	}

	return nil
}

// NewWithRetryAndFallback retries the primary model, then falls back to a
// secondary model if content was blocked or no provider was mapped.
func (c *chatCompletions) NewWithRetryAndFallback(
	ctx context.Context, params openai.ChatCompletionNewParams, fallbackModel string, callback RetryCallback,
) error {
	originalModel := params.Model

	err := c.NewWithRetry(ctx, params, callback)

	if (errors.Is(err, utils.ErrContentBlocked) || errors.Is(err, ErrNoProvidersAvailable)) && fallbackModel != "" {
		c.client.logger.Warn("content blocked or no provider available, attempting fallback model",
			zap.String("original_model", originalModel),
			zap.String("fallback_model", fallbackModel))

		params.Model = fallbackModel

		if fallbackErr := c.NewWithRetry(ctx, params, callback); fallbackErr != nil {
			return fmt.Errorf("both primary and fallback failed: primary=%w, fallback=%w", err, fallbackErr)
		}

		return nil
	}

	return err
}

// NewStreaming creates a streaming chat completion request.
func (c *chatCompletions) NewStreaming(
	ctx context.Context, params openai.ChatCompletionNewParams,
) *ssestream.Stream[openai.ChatCompletionChunk] {
	originalModel := params.Model

	mappedModel, ok := c.client.modelMappings[originalModel]
	if !ok {
		return ssestream.NewStream[openai.ChatCompletionChunk](
			nil, fmt.Errorf("%w: %s", ErrNoProvidersAvailable, originalModel),
		)
	}
	params.Model = mappedModel

	c.client.applyModelSettings(&params)

	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return ssestream.NewStream[openai.ChatCompletionChunk](
			nil, fmt.Errorf("failed to acquire semaphore: %w", err),
		)
	}

	result, err := c.client.breaker.Execute(func() (any, error) {
		stream := c.client.client.Chat.Completions.NewStreaming(ctx, params)
		if stream.Err() != nil {
			return nil, stream.Err()
		}

		return stream, nil
	})
	if err != nil {
		c.client.semaphore.Release(1)

		if errors.Is(err, gobreaker.ErrOpenState) {
			c.client.blockIndefinitely(ctx, params.Model, err)

			return ssestream.NewStream[openai.ChatCompletionChunk](
				nil, fmt.Errorf("system failure - circuit breaker is open: %w", err))
		}

		c.client.logger.Warn("failed to create stream", zap.Error(err))

		return ssestream.NewStream[openai.ChatCompletionChunk](nil, err)
	}

	stream := result.(*ssestream.Stream[openai.ChatCompletionChunk])

	go func() {
		<-ctx.Done()
		c.client.semaphore.Release(1)
	}()

	return stream
}

// checkBlockReasons checks whether the response was blocked by content
// filtering or truncated at the token limit.
func (c *chatCompletions) checkBlockReasons(resp *openai.ChatCompletion, model string) error {
	if resp == nil {
		return fmt.Errorf("%w: received nil response", ErrInvalidResponse)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: received empty choices", ErrInvalidResponse)
	}

	finishReason := resp.Choices[0].FinishReason
	if finishReason == "" {
		return fmt.Errorf("%w: no finish reason provided", ErrInvalidResponse)
	}

	finishReasonHandlers := map[string]error{
		"content_filter": utils.ErrContentBlocked,
		"stop":           nil,
		"length":         nil,
	}

	err, known := finishReasonHandlers[finishReason]
	if !known {
		return fmt.Errorf("%w: unknown finish reason: %s", ErrInvalidResponse, finishReason)
	}

	if finishReason == "length" {
		c.client.logger.Warn("response truncated at max_tokens limit", zap.String("model", model))
		return ErrResponseTruncated
	}

	if err != nil {
		c.client.logger.Warn("content blocked", zap.String("model", model), zap.String("finishReason", finishReason))
		return backoff.Permanent(err)
	}

	return nil
}
