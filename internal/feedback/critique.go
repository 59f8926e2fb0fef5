package feedback

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/ai/client"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/pkg/utils"
	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
)

const applicationJSON = "application/json"

// CategorizedToken is one RLHF (category, token) pair a critique referenced.
type CategorizedToken struct {
	Category enum.RLHFCategory `json:"category" jsonschema_description:"RLHF weight category this token belongs to"`
	Token    string            `json:"token"    jsonschema_description:"the token itself, e.g. a lighting or mood descriptor"`
}

// Delta is a critique's parsed effect: tokens to reinforce, tokens to
// suppress, and direct slot-value overrides.
type Delta struct {
	Add           []CategorizedToken             `json:"add"           jsonschema_description:"tokens the critique asks for more of"`
	Remove        []CategorizedToken             `json:"remove"        jsonschema_description:"tokens the critique asks to drop"`
	SlotOverrides map[enum.AttributeSlot]string `json:"slotOverrides" jsonschema_description:"slot values the critique directly names, e.g. garment: dress"`
}

// deltaSchema is the structured-output schema every critique-parse call is
// bound to.
var deltaSchema = utils.GenerateSchema[Delta]()

const critiqueSystemPrompt = `You turn a fashion designer's free-text critique of a generated image into a ` +
	`structured delta against the prompt that produced it. Reference only the RLHF categories lighting, ` +
	`composition, style, quality, mood, modelPose, and the slots garment, silhouette, color, fabric, finish, ` +
	`lighting, camera, background, details. Never invent a category or slot outside this set.`

// CritiqueParser turns free-text feedback into a structured Delta.
type CritiqueParser interface {
	Parse(ctx context.Context, promptSpec *types.PromptSpec, critiqueText string) (Delta, error)
}

// LLMCritiqueParser parses critiques via a vision/chat LLM, minifying the
// referenced PromptSpec JSON before submission to hold down token usage.
type LLMCritiqueParser struct {
	chat   client.ChatCompletions
	minify *minify.M
	model  string
}

// NewLLMCritiqueParser creates an LLMCritiqueParser bound to model.
func NewLLMCritiqueParser(chat client.ChatCompletions, model string) *LLMCritiqueParser {
	m := minify.New()
	m.AddFunc(applicationJSON, json.Minify)

	return &LLMCritiqueParser{chat: chat, minify: m, model: model}
}

// Parse implements CritiqueParser.
func (p *LLMCritiqueParser) Parse(ctx context.Context, promptSpec *types.PromptSpec, critiqueText string) (Delta, error) {
	specJSON, err := sonic.Marshal(promptSpec)
	if err != nil {
		return Delta{}, fmt.Errorf("marshal prompt spec for critique: %w", err)
	}

	specJSON, err = p.minify.Bytes(applicationJSON, specJSON)
	if err != nil {
		return Delta{}, fmt.Errorf("minify prompt spec for critique: %w", err)
	}

	resp, err := p.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(critiqueSystemPrompt),
			openai.UserMessage("prompt: " + string(specJSON)),
			openai.UserMessage("critique: " + critiqueText),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "critiqueDelta",
					Description: openai.String("Structured delta parsed from a free-text image critique"),
					Schema:      deltaSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model:       p.model,
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return Delta{}, fmt.Errorf("critique parse call: %w", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return Delta{}, fmt.Errorf("critique parse call: %w", ErrEmptyCritiqueResponse)
	}

	var delta Delta
	if err := sonic.Unmarshal([]byte(resp.Choices[0].Message.Content), &delta); err != nil {
		return Delta{}, fmt.Errorf("unmarshal critique delta: %w", err)
	}

	return delta, nil
}
