// Package transport adapts a structured-output model to a chat event stream.
//
// A request flows through three stages: the Gate makes sure the model is
// ready (emitting provisioning events), the Normalizer turns partial objects
// into text deltas, and the Coordinator guarantees the text stream is closed
// exactly once whether the request completes, fails or is cancelled. Auxiliary
// fields of the final object are published through the side-channel helpers.
package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/haowjy/meridian-ondevice-go"
)

// DefaultSystemPrompt is the system prompt of ChatTransport.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// DefaultProgressInterval is how often WorldGenerator reports field progress.
const DefaultProgressInterval = 200 * time.Millisecond

// SuggestionStore receives follow-up suggestions after a chat response completes.
type SuggestionStore interface {
	SetSuggestions(suggestions []string)
}

// WorldStore receives world generation results.
type WorldStore interface {
	SetWorldData(world ondevice.WorldData)
	SetProgress(progress ondevice.FieldProgress)
	SetInitialMessage(message string)
}

// Options configures the components of this package.
// Zero values select the defaults.
type Options struct {
	// System overrides the chat system prompt
	System string

	// Params are forwarded to the model with every request
	Params *ondevice.RequestParams

	// NewID returns identifiers for text streams and provisioning episodes.
	// prefix is "text" or "download".
	NewID func(prefix string) string

	// Suggestions receives chat suggestions (optional)
	Suggestions SuggestionStore

	// World receives world generation results (optional)
	World WorldStore

	// ProgressInterval throttles world field progress reports.
	// Negative disables throttling.
	ProgressInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.System == "" {
		o.System = DefaultSystemPrompt
	}
	if o.NewID == nil {
		o.NewID = newID
	}
	if o.ProgressInterval == 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.ProgressInterval < 0 {
		o.ProgressInterval = 0
	}
	return o
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
