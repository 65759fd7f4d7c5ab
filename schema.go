package ondevice

// FieldType is the JSON type of a schema field.
type FieldType string

// Field types
const (
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
)

// Field declares one property of a structured object.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool

	// Items describes array elements (FieldArray only)
	Items *Field

	// Properties describes object members (FieldObject only)
	Properties []Field
}

// Schema declares the object a structured generation must populate.
//
// StreamField names the scalar string field whose growth is streamed as text
// deltas. Every other field is structural: only meaningful once the final
// object is available.
type Schema struct {
	Name        string
	Description string
	StreamField string
	Fields      []Field
}

// Field returns the declared field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns declared field names with required fields first,
// each group in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	for _, f := range s.Fields {
		if !f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// JSONSchema renders the schema as a JSON Schema object.
func (s *Schema) JSONSchema() map[string]any {
	return objectSchema(s.Description, s.Fields)
}

func objectSchema(description string, fields []Field) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		properties[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
	if description != "" {
		out["description"] = description
	}
	return out
}

func fieldSchema(f Field) map[string]any {
	var out map[string]any
	switch f.Type {
	case FieldObject:
		out = objectSchema("", f.Properties)
	case FieldArray:
		out = map[string]any{"type": "array"}
		if f.Items != nil {
			out["items"] = fieldSchema(*f.Items)
		}
	default:
		out = map[string]any{"type": string(f.Type)}
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	return out
}

func stringField(name, description string, required bool) Field {
	return Field{Name: name, Type: FieldString, Description: description, Required: required}
}

func stringArrayField(name, description string) Field {
	return Field{Name: name, Type: FieldArray, Description: description, Items: &Field{Type: FieldString}}
}

func objectArrayField(name, description string, props ...Field) Field {
	return Field{
		Name:        name,
		Type:        FieldArray,
		Description: description,
		Items:       &Field{Type: FieldObject, Properties: props},
	}
}

// ChatResponseSchema is the shape of a chat reply with follow-up suggestions.
var ChatResponseSchema = &Schema{
	Name:        "chat_response",
	Description: "A reply to the user's message",
	StreamField: "response",
	Fields: []Field{
		stringField("response", "The text response to the user's message", true),
		stringArrayField("suggestions", "3-4 relevant follow-up questions the USER could ask next (from the user's perspective, not the assistant's)"),
	},
}

// WorldSchema is the shape of a generated text adventure world.
var WorldSchema = &Schema{
	Name:        "world_data",
	Description: "A text adventure world",
	Fields: []Field{
		stringField("title", "The title of the text adventure world", true),
		stringField("description", "A brief 2-3 sentence description of the world and its atmosphere", true),
		stringField("setting", "A detailed description of the world setting, including time period, location, and key environmental details", true),
		stringField("startingLocation", "The specific location where the player begins their adventure", true),
		stringField("initialSituation", "The initial situation or scenario the player finds themselves in when the adventure begins", true),
		objectArrayField("characters", "Key characters the player might encounter",
			stringField("name", "", true),
			stringField("description", "", true),
			stringField("role", "", true),
		),
		objectArrayField("items", "Important items or objects in the world",
			stringField("name", "", true),
			stringField("description", "", true),
		),
		stringArrayField("goals", "Potential goals or objectives for the player"),
		stringField("tone", "The overall tone of the adventure (e.g., 'dark and mysterious', 'lighthearted and adventurous', 'tense and suspenseful')", true),
		stringField("genre", "The genre of the adventure (e.g., 'fantasy', 'sci-fi', 'mystery', 'horror')", true),
	},
}

// OpeningSceneSchema is the shape of the first narrator message.
var OpeningSceneSchema = &Schema{
	Name:        "opening_scene",
	Description: "The opening scene of a text adventure",
	StreamField: "openingScene",
	Fields: []Field{
		stringField("openingScene", "The opening scene of the text adventure. Write in second person ('you', 'your'). Keep it concise - 2-3 short paragraphs maximum. Set the stage, describe the starting location and initial situation, and present the player with their first meaningful choice or action.", true),
	},
}

// PromptAnalysisSchema is the shape of a seed prompt analysis.
var PromptAnalysisSchema = &Schema{
	Name:        "prompt_analysis",
	Description: "Whether user input needs rewriting into a text adventure prompt",
	Fields: []Field{
		{
			Name:        "needsTransformation",
			Type:        FieldBoolean,
			Required:    true,
			Description: "Whether the input needs to be transformed into a proper text adventure game prompt. Set to true if the input is a short description, game title, or concept that needs expansion. Set to false if it's already a complete prompt.",
		},
		stringField("transformedPrompt", "The transformed prompt ready for world generation. If needsTransformation is false, this should be the original input. If true, this should be a complete prompt starting with 'You are a text adventure game...' that captures the essence of the input.", true),
	},
}

// ChatResponse is the decoded ChatResponseSchema object.
type ChatResponse struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Character is a notable person in a world.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role"`
}

// Item is a notable object in a world.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WorldData is the decoded WorldSchema object.
type WorldData struct {
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Setting          string      `json:"setting"`
	StartingLocation string      `json:"startingLocation"`
	InitialSituation string      `json:"initialSituation"`
	Characters       []Character `json:"characters,omitempty"`
	Items            []Item      `json:"items,omitempty"`
	Goals            []string    `json:"goals,omitempty"`
	Tone             string      `json:"tone"`
	Genre            string      `json:"genre"`
}

// OpeningScene is the decoded OpeningSceneSchema object.
type OpeningScene struct {
	OpeningScene string `json:"openingScene"`
}

// PromptAnalysis is the decoded PromptAnalysisSchema object.
type PromptAnalysis struct {
	NeedsTransformation bool   `json:"needsTransformation"`
	TransformedPrompt   string `json:"transformedPrompt"`
}

// FieldProgress reports which fields of a structured object are complete and
// which one is being generated. Current is empty once generation finished.
type FieldProgress struct {
	Completed []string `json:"completed"`
	Current   string   `json:"current,omitempty"`
}

// Has reports whether name is in the completed set.
func (p FieldProgress) Has(name string) bool {
	for _, c := range p.Completed {
		if c == name {
			return true
		}
	}
	return false
}
