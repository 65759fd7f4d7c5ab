package anthropic

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	ondevice "github.com/haowjy/meridian-ondevice-go"
)

// buildMessageParams constructs Anthropic API parameters from a StructuredRequest.
func buildMessageParams(model string, req *ondevice.StructuredRequest) (anthropic.MessageNewParams, error) {
	messages, systemTurns, err := convertToAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	tool, err := convertSchemaToTool(req.Schema)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert schema: %w", err)
	}

	params := req.Params
	if params == nil {
		params = &ondevice.RequestParams{}
	}

	apiParams := anthropic.MessageNewParams{
		Model:      anthropic.Model(model),
		Messages:   messages,
		MaxTokens:  int64(params.GetMaxTokens(4096)),
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: forcedToolChoice(req.Schema.Name),
	}

	// Temperature
	if params.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*params.Temperature)
	}

	// Top-K
	if params.TopK != nil {
		apiParams.TopK = anthropic.Int(int64(*params.TopK))
	}

	// System prompt, followed by any system turns from the conversation
	system := make([]string, 0, len(systemTurns)+1)
	if strings.TrimSpace(req.System) != "" {
		system = append(system, req.System)
	}
	system = append(system, systemTurns...)
	if len(system) > 0 {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: strings.Join(system, "\n\n"),
			},
		}
	}

	return apiParams, nil
}
