package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

const promptSystemPrompt = `You are a prompt analyzer for text adventure games.
Your job is to analyze user input and determine if it needs to be transformed into a proper text adventure game prompt.

A proper prompt should follow this structure and style:
- Start with "You are a text adventure game set in..." or "You are a text adventure game where..."
- Describe the setting, world, and atmosphere in detail
- Specify what role the player takes (adventurer, survivor, hero, etc.)
- Describe what elements to present (locations, encounters, mechanics, etc.)
- Include guidance on player choices and consequences
- Create an immersive experience with vivid descriptions
- Be 2-4 sentences long, detailed enough for world generation

If the input is already a complete prompt (starts with "You are a text adventure game..." and follows the structure above), set needsTransformation to false and return it as-is.

If the input is a short description, game title, concept, or incomplete prompt, set needsTransformation to true and create a complete prompt that:
- Follows the exact structure and style of the seed prompts
- Captures the essence, atmosphere, and key elements of the input
- Specifies the player's role and the world they'll explore
- Includes what to present (locations, encounters, mechanics)
- Mentions player choices and their impact
- Creates an immersive, engaging experience

Style guidelines:
- Use vivid, descriptive language
- Be specific about the world and setting
- Mention key mechanics or elements (magic, technology, survival, etc.)
- Emphasize player agency and meaningful choices
- Create a sense of adventure and discovery`

// Prefixes of input that is already a complete game prompt.
var completePromptPrefixes = []string{
	"you are a text adventure game",
	"you are a text-based adventure game",
}

// ErrEmptyPrompt is returned when the model produced no prompt.
var ErrEmptyPrompt = errors.New("model returned an empty prompt")

// PromptTransformer expands short world ideas into full game prompts.
type PromptTransformer struct {
	model ondevice.Model
	opts  Options
}

// NewPromptTransformer creates a prompt transformer for model.
func NewPromptTransformer(model ondevice.Model, opts Options) *PromptTransformer {
	return &PromptTransformer{model: model, opts: opts.withDefaults()}
}

// IsCompletePrompt reports whether input already reads as a game prompt.
func IsCompletePrompt(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, prefix := range completePromptPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Transform returns a game prompt for input. Complete prompts are returned
// trimmed without calling the model.
func (p *PromptTransformer) Transform(ctx context.Context, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if IsCompletePrompt(trimmed) {
		return trimmed, nil
	}
	if trimmed == "" {
		return "", &ondevice.ValidationError{Field: "input", Value: input, Reason: "input is empty", Err: ondevice.ErrInvalidRequest}
	}

	if err := NewGate(p.model, p.opts.NewID).EnsureReady(ctx, nil, nil); err != nil {
		return "", err
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := p.model.GenerateStructured(genCtx, &ondevice.StructuredRequest{
		Schema: ondevice.PromptAnalysisSchema,
		System: promptSystemPrompt,
		Messages: []ondevice.Message{
			ondevice.UserMessage("Analyze this input and transform it if needed:\n\n" + trimmed),
		},
		Params: p.opts.Params,
	})
	if err != nil {
		return "", &ondevice.GenerationError{Provider: p.model.Name().String(), Cause: err}
	}

	// Only the final object matters here.
	for range drain(genCtx, stream.Partials) {
	}
	final, err := stream.Object(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ondevice.GenerationError{Provider: p.model.Name().String(), Cause: err}
	}

	var analysis ondevice.PromptAnalysis
	if err := json.Unmarshal(final, &analysis); err != nil {
		return "", &ondevice.GenerationError{
			Provider: p.model.Name().String(),
			Cause:    fmt.Errorf("failed to decode prompt analysis: %w", err),
		}
	}
	if strings.TrimSpace(analysis.TransformedPrompt) == "" {
		return "", &ondevice.GenerationError{Provider: p.model.Name().String(), Cause: ErrEmptyPrompt}
	}

	logger.Debug("prompt analysed", logger.Fields{"needs_transformation": analysis.NeedsTransformation})
	return analysis.TransformedPrompt, nil
}
