package ondevice

// ProviderID represents a unique provider identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type ProviderID string

// Known provider identifiers
const (
	// ProviderLorem is the mock on-device provider for testing and demos
	ProviderLorem ProviderID = "lorem"

	// ProviderAnthropic backs the capability with Anthropic's Claude API
	ProviderAnthropic ProviderID = "anthropic"
)

// String returns the string representation of the provider ID
func (p ProviderID) String() string {
	return string(p)
}

// IsValid returns true if the provider ID is a known provider
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderLorem, ProviderAnthropic:
		return true
	default:
		return false
	}
}
