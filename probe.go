package ondevice

import (
	"os"
	"strings"
)

// Host markers inspected by the capability probe.
const (
	// EnvProvider names the provider backing the model capability.
	EnvProvider = "ONDEVICE_PROVIDER"

	// EnvDisabled turns the capability off when set to a truthy value.
	EnvDisabled = "ONDEVICE_DISABLED"
)

// LookupFunc reads a host marker, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// SupportsCapability reports whether the host exposes a structured-streaming
// model. It only inspects markers; absence is a normal false.
func SupportsCapability(lookup LookupFunc) bool {
	if lookup == nil {
		return false
	}
	if v, ok := lookup(EnvDisabled); ok && isTruthy(v) {
		return false
	}
	name, ok := lookup(EnvProvider)
	if !ok {
		return false
	}
	provider := ProviderID(strings.ToLower(strings.TrimSpace(name)))
	if !provider.IsValid() {
		return false
	}
	return GetCapabilityRegistry().SupportsStructuredStreaming(provider)
}

// SupportsCapabilityFromEnv probes the process environment.
func SupportsCapabilityFromEnv() bool {
	return SupportsCapability(os.LookupEnv)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
