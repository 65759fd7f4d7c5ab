package ondevice

// GenerateRequest is a chat request submitted to the transport.
// It must not be mutated after submission. Cancellation is carried by the
// context passed alongside it.
type GenerateRequest struct {
	// Messages contains the conversation history, oldest first.
	Messages []Message

	// Params contains optional sampling parameters
	Params *RequestParams
}

// Message represents a single turn in the conversation.
type Message struct {
	// Role is "user", "assistant" or "system"
	Role string

	// Blocks is the list of content blocks for this message
	Blocks []*Block
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.IsText() {
			out += *b.TextContent
		}
	}
	return out
}

// UserMessage returns a single-block user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Blocks: []*Block{NewTextBlock(text)}}
}

// AssistantMessage returns a single-block assistant turn.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []*Block{NewTextBlock(text)}}
}

// StructuredRequest is what the transport hands to Model.GenerateStructured.
type StructuredRequest struct {
	// Schema describes the object the model must populate
	Schema *Schema

	// System is the system prompt
	System string

	// Messages is the conversation, oldest first
	Messages []Message

	// Params contains optional sampling parameters
	Params *RequestParams
}
