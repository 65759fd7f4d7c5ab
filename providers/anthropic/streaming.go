package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	ondevice "github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
	"github.com/haowjy/meridian-ondevice-go/internal/partialjson"
)

// GenerateStructured streams a forced tool call from Claude.
// Every input_json_delta extends the accumulated tool input, which is
// repaired into a partial object and emitted when it changed.
func (p *Provider) GenerateStructured(ctx context.Context, req *ondevice.StructuredRequest) (*ondevice.StructuredStream, error) {
	if req == nil || req.Schema == nil {
		return nil, &ondevice.ValidationError{
			Field:  "schema",
			Reason: "structured request requires a schema",
			Err:    ondevice.ErrInvalidRequest,
		}
	}
	if err := ondevice.GetCapabilityRegistry().ValidateParams(p.Name(), req.Params); err != nil {
		return nil, err
	}

	apiParams, err := buildMessageParams(p.model, req)
	if err != nil {
		return nil, &ondevice.ValidationError{
			Field:  "messages",
			Reason: err.Error(),
			Err:    ondevice.ErrInvalidRequest,
		}
	}

	partials := make(chan ondevice.PartialObject, 10) // Buffered to prevent blocking
	final := make(chan ondevice.FinalObject, 1)

	go func() {
		defer close(partials)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)
		defer stream.Close()

		// Accumulator for final message metadata
		message := anthropic.Message{}
		var (
			input []byte
			last  []byte
		)

		fail := func(err error) {
			select {
			case partials <- ondevice.PartialObject{Err: err}:
			case <-ctx.Done():
			}
			final <- ondevice.FinalObject{Err: err}
		}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				fail(fmt.Errorf("failed to accumulate message: %w", err))
				return
			}

			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok || delta.Delta.Type != "input_json_delta" {
				continue
			}
			input = append(input, delta.Delta.PartialJSON...)

			snapshot, ok := partialjson.Complete(input)
			if !ok || bytes.Equal(snapshot, last) {
				continue
			}
			last = snapshot

			// Check context in case consumer cancelled
			select {
			case <-ctx.Done():
				final <- ondevice.FinalObject{Err: ctx.Err()}
				return
			case partials <- ondevice.PartialObject{Raw: json.RawMessage(snapshot)}:
			}
		}

		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				final <- ondevice.FinalObject{Err: ctx.Err()}
				return
			}
			fail(mapError(err))
			return
		}

		logger.Debug("anthropic structured stream finished", logger.Fields{
			"model":         string(message.Model),
			"schema":        req.Schema.Name,
			"stop_reason":   string(message.StopReason),
			"input_tokens":  message.Usage.InputTokens,
			"output_tokens": message.Usage.OutputTokens,
		})

		if !json.Valid(input) {
			fail(fmt.Errorf("anthropic: incomplete %s object (stop_reason: %s)", req.Schema.Name, message.StopReason))
			return
		}
		final <- ondevice.FinalObject{Raw: json.RawMessage(input)}
	}()

	return ondevice.NewStructuredStream(partials, final), nil
}
