package ondevice

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/capabilities/models.yaml
var embeddedCapabilitiesYAML []byte

// Capabilities are MODEL METADATA: context limits, download size and feature
// flags used by the capability probe, parameter validation and progress
// messages. Provider runtimes stay the source of truth for what a model
// actually accepts.
//
// The embedded catalogue can be overridden with LoadCapabilitiesFromFile or
// RegisterProviderCapabilities.

// CapabilityCatalogue is the top-level YAML document.
type CapabilityCatalogue struct {
	Version     string                           `yaml:"version"`
	LastUpdated string                           `yaml:"last_updated"`
	Providers   map[string]*ProviderCapabilities `yaml:"providers"`
}

// ProviderCapabilities represents the capability configuration for a provider
type ProviderCapabilities struct {
	OnDevice    bool                       `yaml:"on_device"`
	Models      map[string]ModelCapability `yaml:"models"`
	Constraints ProviderConstraints        `yaml:"constraints"`
}

// ModelCapability represents the capabilities of a specific model
type ModelCapability struct {
	ContextWindow   int           `yaml:"context_window"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	DownloadSizeMB  int           `yaml:"download_size_mb"`
	Features        ModelFeatures `yaml:"features"`
}

// ModelFeatures indicates which features a model supports
type ModelFeatures struct {
	Streaming        bool `yaml:"streaming"`
	StructuredOutput bool `yaml:"structured_output"`
	Attachments      bool `yaml:"attachments"`
}

// ProviderConstraints defines provider-wide parameter limits
type ProviderConstraints struct {
	TemperatureMin float64 `yaml:"temperature_min"`
	TemperatureMax float64 `yaml:"temperature_max"`
	TopKMin        int     `yaml:"top_k_min"`
	TopKMax        int     `yaml:"top_k_max"` // 0 means unbounded
}

var defaultConstraints = ProviderConstraints{
	TemperatureMin: 0.0,
	TemperatureMax: 2.0,
	TopKMin:        1,
}

// CapabilityRegistry manages provider capabilities
type CapabilityRegistry struct {
	capabilities map[string]*ProviderCapabilities
	mu           sync.RWMutex
}

var (
	globalRegistry     *CapabilityRegistry
	globalRegistryOnce sync.Once
)

// GetCapabilityRegistry returns the registry loaded from the embedded catalogue.
func GetCapabilityRegistry() *CapabilityRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewCapabilityRegistry()
		if err := globalRegistry.load(embeddedCapabilitiesYAML); err != nil {
			// Don't panic - lookups report missing capabilities instead
			fmt.Printf("Warning: failed to load embedded capabilities: %v\n", err)
		}
	})
	return globalRegistry
}

// NewCapabilityRegistry returns an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{capabilities: make(map[string]*ProviderCapabilities)}
}

// LoadCapabilitiesFromFile merges a YAML catalogue from disk into the registry.
// Providers present in the file replace existing entries.
func (r *CapabilityRegistry) LoadCapabilitiesFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capabilities file: %w", err)
	}
	return r.load(data)
}

func (r *CapabilityRegistry) load(data []byte) error {
	var catalogue CapabilityCatalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return fmt.Errorf("failed to unmarshal capabilities: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, caps := range catalogue.Providers {
		if caps == nil {
			continue
		}
		r.capabilities[name] = caps
	}
	return nil
}

// RegisterProviderCapabilities adds or replaces a provider entry.
func (r *CapabilityRegistry) RegisterProviderCapabilities(provider ProviderID, caps *ProviderCapabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[provider.String()] = caps
}

// GetProviderCapabilities returns capabilities for a provider
func (r *CapabilityRegistry) GetProviderCapabilities(provider ProviderID) (*ProviderCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps, ok := r.capabilities[provider.String()]
	if !ok {
		return nil, fmt.Errorf("no capabilities found for provider: %s", provider)
	}
	return caps, nil
}

// GetModelCapability returns capabilities for a specific model.
// Model names are matched exactly, then by longest registered prefix, so
// dated snapshots ("claude-haiku-4-5-20251001") resolve to their family.
func (r *CapabilityRegistry) GetModelCapability(provider ProviderID, model string) (*ModelCapability, error) {
	providerCaps, err := r.GetProviderCapabilities(provider)
	if err != nil {
		return nil, err
	}

	if modelCap, ok := providerCaps.Models[model]; ok {
		return &modelCap, nil
	}

	var best string
	for name := range providerCaps.Models {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return nil, fmt.Errorf("model %s not found for provider %s", model, provider)
	}
	modelCap := providerCaps.Models[best]
	return &modelCap, nil
}

// SupportsModel checks if a provider supports a specific model
func (r *CapabilityRegistry) SupportsModel(provider ProviderID, model string) bool {
	_, err := r.GetModelCapability(provider, model)
	return err == nil
}

// SupportsStructuredStreaming reports whether any model of the provider
// streams structured output.
func (r *CapabilityRegistry) SupportsStructuredStreaming(provider ProviderID) bool {
	caps, err := r.GetProviderCapabilities(provider)
	if err != nil {
		return false
	}
	for _, m := range caps.Models {
		if m.Features.Streaming && m.Features.StructuredOutput {
			return true
		}
	}
	return false
}

// ValidateParams checks params against the provider's constraints.
// Providers without an entry fall back to generic limits.
func (r *CapabilityRegistry) ValidateParams(provider ProviderID, params *RequestParams) error {
	constraints := defaultConstraints
	if caps, err := r.GetProviderCapabilities(provider); err == nil {
		constraints = caps.Constraints
	}
	return validateParams(params, constraints)
}
