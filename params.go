package ondevice

// RequestParams represents the sampling parameters a model may honour.
// All fields are optional pointers to distinguish "not set" from "set to zero value".
type RequestParams struct {
	// Temperature controls randomness
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// TopK limits sampling to top K tokens
	TopK *int `json:"top_k,omitempty" yaml:"top_k,omitempty"`

	// MaxTokens sets the maximum number of tokens to generate
	MaxTokens *int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// ValidateRequestParams checks parameter ranges against generic limits.
// Use CapabilityRegistry.ValidateParams for provider-specific constraints.
func ValidateRequestParams(params *RequestParams) error {
	return validateParams(params, defaultConstraints)
}

func validateParams(params *RequestParams, c ProviderConstraints) error {
	if params == nil {
		return nil // nil params is valid
	}

	if params.Temperature != nil {
		if *params.Temperature < c.TemperatureMin || *params.Temperature > c.TemperatureMax {
			return &ValidationError{
				Field:  "temperature",
				Value:  *params.Temperature,
				Reason: "out of range",
				Err:    ErrInvalidRequest,
			}
		}
	}

	if params.TopK != nil {
		if *params.TopK < c.TopKMin || (c.TopKMax > 0 && *params.TopK > c.TopKMax) {
			return &ValidationError{
				Field:  "top_k",
				Value:  *params.TopK,
				Reason: "out of range",
				Err:    ErrInvalidRequest,
			}
		}
	}

	if params.MaxTokens != nil && *params.MaxTokens < 1 {
		return &ValidationError{
			Field:  "max_tokens",
			Value:  *params.MaxTokens,
			Reason: "must be positive",
			Err:    ErrInvalidRequest,
		}
	}

	return nil
}

// GetMaxTokens returns max_tokens with default fallback
func (rp *RequestParams) GetMaxTokens(defaultValue int) int {
	if rp != nil && rp.MaxTokens != nil {
		return *rp.MaxTokens
	}
	return defaultValue
}

// GetTemperature returns temperature with default fallback
func (rp *RequestParams) GetTemperature(defaultValue float64) float64 {
	if rp != nil && rp.Temperature != nil {
		return *rp.Temperature
	}
	return defaultValue
}
