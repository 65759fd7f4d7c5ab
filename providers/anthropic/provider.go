package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	ondevice "github.com/haowjy/meridian-ondevice-go"
)

// Provider backs the on-device model capability with Anthropic (Claude) models.
// Structured output is obtained by forcing a single tool whose input schema
// is the requested object schema.
type Provider struct {
	client *anthropic.Client
	model  string
}

// NewProvider creates a new Anthropic provider with the given API key and model.
// Extra request options (base URL, retries, HTTP client) are passed to the SDK client.
func NewProvider(apiKey, model string, opts ...option.RequestOption) (*Provider, error) {
	if apiKey == "" {
		return nil, ondevice.ErrInvalidAPIKey
	}

	p := &Provider{model: model}
	if !p.SupportsModel(model) {
		return nil, &ondevice.ModelError{
			Model:    model,
			Provider: p.Name().String(),
			Reason:   "model not supported by Anthropic (must start with 'claude-')",
			Err:      ondevice.ErrInvalidModel,
		}
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	p.client = &client
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() ondevice.ProviderID {
	return ondevice.ProviderAnthropic
}

// Model returns the Claude model requests are sent to.
func (p *Provider) Model() string {
	return p.model
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Availability always reports a hosted model as available.
func (p *Provider) Availability(ctx context.Context) (ondevice.Availability, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return ondevice.AvailabilityAvailable, nil
}

// ProvisionWithProgress has nothing to download and reports completion at once.
func (p *Provider) ProvisionWithProgress(ctx context.Context, onTick func(fraction float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if onTick != nil {
		onTick(1)
	}
	return nil
}

// mapError wraps authentication failures with ErrInvalidAPIKey.
func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %w", ondevice.ErrInvalidAPIKey, err)
	}
	return fmt.Errorf("anthropic streaming error: %w", err)
}
