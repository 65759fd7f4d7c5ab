package ondevice

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrCapabilityUnavailable indicates the host cannot supply the model capability at all.
	ErrCapabilityUnavailable = errors.New("ondevice: capability unavailable")

	// ErrProvisioningFailed indicates the model did not become ready.
	ErrProvisioningFailed = errors.New("ondevice: provisioning failed")

	// ErrStreamInvariantViolation indicates a partial object broke the
	// prefix-extension contract of its streamed text field.
	ErrStreamInvariantViolation = errors.New("ondevice: stream invariant violation")

	// ErrGenerationFailed indicates structured generation failed.
	ErrGenerationFailed = errors.New("ondevice: generation failed")

	// ErrAborted indicates the operation observed its cancellation signal.
	ErrAborted = errors.New("ondevice: aborted")

	// ErrInvalidModel indicates the requested model is not supported by the provider.
	ErrInvalidModel = errors.New("ondevice: invalid or unsupported model")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("ondevice: invalid API key")

	// ErrInvalidRequest indicates the request parameters are invalid.
	ErrInvalidRequest = errors.New("ondevice: invalid request")
)

// ProvisioningError reports why provisioning did not reach the ready state.
type ProvisioningError struct {
	Provider string // The provider name
	Reason   string // Human-readable explanation
	Err      error  // Underlying cause, if any
}

func (e *ProvisioningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provisioning '%s' failed: %s (%v)", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("provisioning '%s' failed: %s", e.Provider, e.Reason)
}

func (e *ProvisioningError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProvisioningFailed, e.Err}
	}
	return []error{ErrProvisioningFailed}
}

// InvariantError reports a streamed text field that shrank or diverged.
type InvariantError struct {
	Field    string // The streamed field
	Previous string // Text already emitted
	Current  string // Offending snapshot
}

func (e *InvariantError) Error() string {
	if len(e.Current) < len(e.Previous) {
		return fmt.Sprintf("field '%s' shrank from %d to %d bytes", e.Field, len(e.Previous), len(e.Current))
	}
	return fmt.Sprintf("field '%s' diverged from emitted prefix at %d bytes", e.Field, divergence(e.Previous, e.Current))
}

func (e *InvariantError) Unwrap() error {
	return ErrStreamInvariantViolation
}

func divergence(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// GenerationError wraps a failure surfaced while iterating partials or
// awaiting the final object.
type GenerationError struct {
	Provider string // The provider name
	Cause    error  // Underlying failure
}

func (e *GenerationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("generation with '%s' failed: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Cause}
}

// ModelError represents an error related to model validation or availability.
type ModelError struct {
	Model    string // The model that was requested
	Provider string // The provider name
	Reason   string // Human-readable explanation
	Err      error  // Wrapped error (usually ErrInvalidModel)
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s' for provider '%s': %s (%v)", e.Model, e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s' for provider '%s': %s", e.Model, e.Provider, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error in request parameter validation.
type ValidationError struct {
	Field  string // The parameter field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsAbortError reports whether err is attributable to cancellation rather
// than a genuine failure. Besides context cancellation and ErrAborted it
// accepts errors whose message mentions an abort, which is how some model
// runtimes surface a cancelled generation.
func IsAbortError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrAborted) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "abort")
}

// IsContractError reports whether err is an upstream contract breach.
// These are programming errors, not transient faults.
func IsContractError(err error) bool {
	return errors.Is(err, ErrStreamInvariantViolation)
}

// IsRetryable reports whether a fresh request may succeed.
// Provisioning and generation failures are retryable; contract breaches,
// missing capability and invalid requests are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsContractError(err) || IsInvalidRequest(err) || errors.Is(err, ErrCapabilityUnavailable) {
		return false
	}
	return errors.Is(err, ErrProvisioningFailed) || errors.Is(err, ErrGenerationFailed)
}

// IsInvalidRequest checks if an error indicates invalid request parameters.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidModel) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
