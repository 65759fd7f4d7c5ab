// Package providers constructs a model capability by provider name.
package providers

import (
	ondevice "github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/providers/anthropic"
	"github.com/haowjy/meridian-ondevice-go/providers/lorem"
)

// Default models used when none is configured.
const (
	DefaultLoremModel     = "lorem-fast"
	DefaultAnthropicModel = "claude-haiku-4-5"
)

// New returns the model for provider id. An empty model selects the
// provider's default; apiKey is only used by remote providers.
func New(id ondevice.ProviderID, model, apiKey string) (ondevice.Model, error) {
	switch id {
	case ondevice.ProviderLorem:
		if model == "" {
			model = DefaultLoremModel
		}
		p, err := lorem.NewProvider(model)
		if err != nil {
			return nil, err
		}
		return p, nil

	case ondevice.ProviderAnthropic:
		if model == "" {
			model = DefaultAnthropicModel
		}
		p, err := anthropic.NewProvider(apiKey, model)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, &ondevice.ModelError{
			Model:    model,
			Provider: id.String(),
			Reason:   "unknown provider",
			Err:      ondevice.ErrInvalidModel,
		}
	}
}
