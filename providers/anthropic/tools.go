package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	ondevice "github.com/haowjy/meridian-ondevice-go"
)

// convertSchemaToTool converts an object schema to an Anthropic custom tool.
// The schema's JSON Schema rendering supplies the tool's input_schema:
// properties and required map to their SDK fields, everything else
// (additionalProperties, description) is carried in ExtraFields.
func convertSchemaToTool(schema *ondevice.Schema) (anthropic.ToolUnionParam, error) {
	if schema == nil || schema.Name == "" {
		return anthropic.ToolUnionParam{}, fmt.Errorf("schema name is required")
	}

	rendered := schema.JSONSchema()
	inputSchema := anthropic.ToolInputSchemaParam{
		Properties:  rendered["properties"],
		ExtraFields: make(map[string]any),
	}
	if required, ok := rendered["required"].([]string); ok {
		inputSchema.Required = required
	}
	for key, value := range rendered {
		if key != "type" && key != "properties" && key != "required" && key != "description" {
			inputSchema.ExtraFields[key] = value
		}
	}

	toolParam := anthropic.ToolUnionParamOfTool(inputSchema, schema.Name)
	if schema.Description != "" {
		if toolParam.OfTool == nil {
			toolParam.OfTool = &anthropic.ToolParam{}
		}
		toolParam.OfTool.Description = anthropic.String(schema.Description)
	}

	return toolParam, nil
}

// forcedToolChoice makes the model answer with exactly the named tool.
func forcedToolChoice(name string) anthropic.ToolChoiceUnionParam {
	return anthropic.ToolChoiceParamOfTool(name)
}
