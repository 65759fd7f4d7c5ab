package ondevice

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetModelCapability_KnownModel(t *testing.T) {
	registry := GetCapabilityRegistry()

	modelCap, err := registry.GetModelCapability(ProviderLorem, "lorem-download")
	if err != nil {
		t.Fatalf("GetModelCapability() error = %v", err)
	}
	if modelCap.DownloadSizeMB != 1843 {
		t.Errorf("DownloadSizeMB = %d, want 1843", modelCap.DownloadSizeMB)
	}
	if !modelCap.Features.Streaming || !modelCap.Features.StructuredOutput {
		t.Error("lorem-download should stream structured output")
	}
}

func TestGetModelCapability_PrefixMatch(t *testing.T) {
	registry := GetCapabilityRegistry()

	tests := []struct {
		name     string
		provider ProviderID
		model    string
		wantErr  bool
	}{
		{"exact", ProviderAnthropic, "claude-haiku-4-5", false},
		{"dated snapshot", ProviderAnthropic, "claude-haiku-4-5-20251001", false},
		{"unknown family", ProviderAnthropic, "claude-2", true},
		{"unknown provider", ProviderID("other"), "lorem-fast", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.GetModelCapability(tt.provider, tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetModelCapability(%s, %s) error = %v, wantErr %v", tt.provider, tt.model, err, tt.wantErr)
			}
			if got := registry.SupportsModel(tt.provider, tt.model); got == tt.wantErr {
				t.Errorf("SupportsModel(%s, %s) = %v", tt.provider, tt.model, got)
			}
		})
	}
}

func TestSupportsStructuredStreaming(t *testing.T) {
	registry := NewCapabilityRegistry()
	registry.RegisterProviderCapabilities(ProviderLorem, &ProviderCapabilities{
		OnDevice: true,
		Models: map[string]ModelCapability{
			"lorem-plain": {Features: ModelFeatures{Streaming: true}},
		},
	})

	if registry.SupportsStructuredStreaming(ProviderLorem) {
		t.Error("provider without structured output should not qualify")
	}
	if registry.SupportsStructuredStreaming(ProviderAnthropic) {
		t.Error("unregistered provider should not qualify")
	}

	registry.RegisterProviderCapabilities(ProviderLorem, &ProviderCapabilities{
		Models: map[string]ModelCapability{
			"lorem-structured": {Features: ModelFeatures{Streaming: true, StructuredOutput: true}},
		},
	})
	if !registry.SupportsStructuredStreaming(ProviderLorem) {
		t.Error("provider with structured streaming should qualify")
	}
}

func TestLoadCapabilitiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	data := []byte(`
providers:
  lorem:
    on_device: true
    constraints:
      temperature_min: 0.0
      temperature_max: 0.5
      top_k_min: 1
    models:
      lorem-tiny:
        context_window: 512
        features:
          streaming: true
          structured_output: true
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	registry := NewCapabilityRegistry()
	if err := registry.LoadCapabilitiesFromFile(path); err != nil {
		t.Fatalf("LoadCapabilitiesFromFile() error = %v", err)
	}

	modelCap, err := registry.GetModelCapability(ProviderLorem, "lorem-tiny")
	if err != nil {
		t.Fatalf("GetModelCapability() error = %v", err)
	}
	if modelCap.ContextWindow != 512 {
		t.Errorf("ContextWindow = %d, want 512", modelCap.ContextWindow)
	}
	if err := registry.ValidateParams(ProviderLorem, &RequestParams{Temperature: float64Ptr(0.8)}); err == nil {
		t.Error("temperature above the loaded constraint should be rejected")
	}
}

func TestLoadCapabilitiesFromFile_Errors(t *testing.T) {
	registry := NewCapabilityRegistry()
	if err := registry.LoadCapabilitiesFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("providers: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := registry.LoadCapabilitiesFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
