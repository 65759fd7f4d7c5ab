package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	ondevice "github.com/haowjy/meridian-ondevice-go"
)

// convertToAnthropicMessages converts library messages to Anthropic SDK format.
// System turns are returned separately since Anthropic takes them as the
// top-level system prompt.
func convertToAnthropicMessages(messages []ondevice.Message) ([]anthropic.MessageParam, []string, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))
	var system []string

	for i, msg := range messages {
		if msg.Role == ondevice.RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
		for j, block := range msg.Blocks {
			switch block.BlockType {
			case ondevice.BlockTypeText:
				if block.TextContent == nil {
					return nil, nil, fmt.Errorf("message %d, block %d: text block missing text_content", i, j)
				}
				blocks = append(blocks, anthropic.NewTextBlock(*block.TextContent))

			case ondevice.BlockTypeFile:
				if block.File == nil {
					return nil, nil, fmt.Errorf("message %d, block %d: file block missing file", i, j)
				}
				blocks = append(blocks, convertFileBlock(block))

			default:
				// Skip unsupported block types
			}
		}

		// Anthropic rejects empty content
		if len(blocks) == 0 {
			continue
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case ondevice.RoleUser:
			message = anthropic.NewUserMessage(blocks...)
		case ondevice.RoleAssistant:
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, system, nil
}

// convertFileBlock sends inline images as image blocks. Other attachments,
// and images only available by URL, are described to the model in text.
func convertFileBlock(block *ondevice.Block) anthropic.ContentBlockParamUnion {
	f := block.File
	if block.IsImage() && f.Data != "" {
		return anthropic.NewImageBlockBase64(f.MediaType, f.Data)
	}

	name := f.Name
	if name == "" {
		name = f.URL
	}
	if name == "" {
		name = "unnamed"
	}
	return anthropic.NewTextBlock(fmt.Sprintf("[Attached file: %s (%s)]", name, f.MediaType))
}
