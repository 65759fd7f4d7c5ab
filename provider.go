package ondevice

import (
	"context"
)

// Model is the capability interface of a structured-output language model.
// The transport consumes it and never talks to a model runtime directly.
//
// Types used by this interface:
//   - Availability: defined in types.go
//   - StructuredRequest, Message: defined in request.go
//   - StructuredStream, PartialObject: defined in streaming.go
type Model interface {
	// Name returns the provider identifier (e.g., "lorem", "anthropic").
	Name() ProviderID

	// Availability reports whether the model can serve requests right now.
	// An error means the capability could not be instantiated at all.
	Availability(ctx context.Context) (Availability, error)

	// ProvisionWithProgress downloads or initializes the model.
	// onTick receives completion fractions in [0, 1]. Implementations may
	// skip ticks; the caller must not rely on a final tick of 1.0.
	ProvisionWithProgress(ctx context.Context, onTick func(fraction float64)) error

	// GenerateStructured starts a structured generation (non-blocking).
	// Partial objects arrive on StructuredStream.Partials, which is closed
	// when generation ends. The authoritative object is returned by
	// StructuredStream.Object.
	//
	// Usage:
	//   stream, err := model.GenerateStructured(ctx, req)
	//   if err != nil { return err }
	//   for partial := range stream.Partials {
	//     if partial.Err != nil { handle error }
	//     inspect partial.Raw
	//   }
	//   final, err := stream.Object(ctx)
	GenerateStructured(ctx context.Context, req *StructuredRequest) (*StructuredStream, error)
}
