package ondevice

import "fmt"

// WarningCode is a machine-readable identifier for request warnings
type WarningCode string

const (
	WarningCodeModelUnknown             WarningCode = "MODEL_UNKNOWN"
	WarningCodeStructuredOutputMissing  WarningCode = "STRUCTURED_OUTPUT_MISSING"
	WarningCodeAttachmentsUnsupported   WarningCode = "ATTACHMENTS_UNSUPPORTED"
	WarningCodeMaxTokensAboveModelLimit WarningCode = "MAX_TOKENS_ABOVE_MODEL_LIMIT"
)

// ValidationWarning represents a potential issue with a request.
// These are informational: requests are never blocked on warnings, the
// model runtime is the source of truth.
type ValidationWarning struct {
	Code    WarningCode // Machine-readable code
	Field   string      // Field that might cause issues
	Value   any         // The potentially problematic value
	Message string      // Human-readable warning
}

// CheckRequest compares a request against the catalogue entry for model.
// Unknown providers and models yield a single MODEL_UNKNOWN warning.
func (r *CapabilityRegistry) CheckRequest(provider ProviderID, model string, messages []Message, params *RequestParams) []ValidationWarning {
	modelCap, err := r.GetModelCapability(provider, model)
	if err != nil {
		return []ValidationWarning{{
			Code:    WarningCodeModelUnknown,
			Field:   "model",
			Value:   model,
			Message: fmt.Sprintf("Model %s not found in %s capabilities (might be new or invalid)", model, provider),
		}}
	}

	var warnings []ValidationWarning

	if !modelCap.Features.Streaming || !modelCap.Features.StructuredOutput {
		warnings = append(warnings, ValidationWarning{
			Code:    WarningCodeStructuredOutputMissing,
			Field:   "model",
			Value:   model,
			Message: fmt.Sprintf("Model %s might not stream structured output (check capabilities)", model),
		})
	}

	if n := countAttachments(messages); n > 0 && !modelCap.Features.Attachments {
		warnings = append(warnings, ValidationWarning{
			Code:    WarningCodeAttachmentsUnsupported,
			Field:   "messages",
			Value:   n,
			Message: fmt.Sprintf("Model %s might not accept attachments (%d in request)", model, n),
		})
	}

	if params != nil && params.MaxTokens != nil && modelCap.MaxOutputTokens > 0 && *params.MaxTokens > modelCap.MaxOutputTokens {
		warnings = append(warnings, ValidationWarning{
			Code:    WarningCodeMaxTokensAboveModelLimit,
			Field:   "max_tokens",
			Value:   *params.MaxTokens,
			Message: fmt.Sprintf("max_tokens %d exceeds model output limit %d", *params.MaxTokens, modelCap.MaxOutputTokens),
		})
	}

	return warnings
}

// countAttachments counts file blocks across all messages
func countAttachments(messages []Message) int {
	n := 0
	for _, msg := range messages {
		for _, block := range msg.Blocks {
			if block.IsFile() {
				n++
			}
		}
	}
	return n
}
