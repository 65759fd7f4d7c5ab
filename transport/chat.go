package transport

import (
	"context"
	"errors"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

// ChatTransport streams chat responses from a structured-output model.
// Each response is generated against ondevice.ChatResponseSchema; the
// response field is streamed as text and suggestions are published to the
// suggestion store once the response completes.
//
// One request at a time per transport; callers serialize regenerations.
type ChatTransport struct {
	model ondevice.Model
	opts  Options
}

// NewChatTransport creates a chat transport for model.
func NewChatTransport(model ondevice.Model, opts Options) *ChatTransport {
	return &ChatTransport{model: model, opts: opts.withDefaults()}
}

// SendMessages generates a response to req and writes its events to sink.
//
// Cancelling ctx is the abort signal: the text stream is closed at once and
// SendMessages returns nil. On failure an error notification is written to
// sink before the error is returned; events already written stay valid.
func (t *ChatTransport) SendMessages(ctx context.Context, req *ondevice.GenerateRequest, sink ondevice.Sink) error {
	if sink == nil {
		sink = ondevice.Discard
	}
	err := t.send(ctx, req, sink)
	if err != nil {
		sink.Write(ondevice.Notification{Message: "Error: " + err.Error(), Level: ondevice.LevelError})
		if ondevice.IsContractError(err) {
			return err
		}
		logger.Error("chat request failed", err, logger.Fields{"provider": t.providerName()})
	}
	return err
}

func (t *ChatTransport) send(ctx context.Context, req *ondevice.GenerateRequest, sink ondevice.Sink) error {
	if req == nil {
		return &ondevice.ValidationError{Field: "request", Reason: "request is nil", Err: ondevice.ErrInvalidRequest}
	}
	params := req.Params
	if params == nil {
		params = t.opts.Params
	}

	if t.model != nil {
		if err := ondevice.GetCapabilityRegistry().ValidateParams(t.model.Name(), params); err != nil {
			return err
		}
		t.warn(req.Messages, params)
	}

	gate := NewGate(t.model, t.opts.NewID)
	if err := gate.EnsureReady(ctx, sink, nil); err != nil {
		if ctx.Err() != nil && ondevice.IsAbortError(err) {
			return nil
		}
		return err
	}

	coord := NewCoordinator(sink, t.opts.NewID)
	coord.Watch(ctx)
	defer coord.Release()

	// The generation gets its own context so an early return stops the model.
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := t.model.GenerateStructured(genCtx, &ondevice.StructuredRequest{
		Schema:   ondevice.ChatResponseSchema,
		System:   t.opts.System,
		Messages: req.Messages,
		Params:   params,
	})
	if err != nil {
		coord.Finish()
		if ctx.Err() != nil && ondevice.IsAbortError(err) {
			return nil
		}
		if ondevice.IsInvalidRequest(err) {
			return err
		}
		return &ondevice.GenerationError{Provider: t.providerName(), Cause: err}
	}

	completed, err := NewNormalizer(ondevice.ChatResponseSchema.StreamField, coord).
		WithProvider(t.providerName()).
		Run(ctx, stream.Partials)
	if err != nil || !completed {
		return err
	}

	final, err := stream.Object(ctx)
	if err != nil {
		if ctx.Err() != nil || ondevice.IsAbortError(err) {
			return nil
		}
		var genErr *ondevice.GenerationError
		if errors.As(err, &genErr) {
			return err
		}
		return &ondevice.GenerationError{Provider: t.providerName(), Cause: err}
	}

	if PublishSuggestions(final, t.opts.Suggestions) {
		logger.Debug("published suggestions", logger.Fields{"provider": t.providerName()})
	}
	return nil
}

// warn logs catalogue warnings for models that report their name.
func (t *ChatTransport) warn(messages []ondevice.Message, params *ondevice.RequestParams) {
	named, ok := t.model.(interface{ Model() string })
	if !ok {
		return
	}
	for _, w := range ondevice.GetCapabilityRegistry().CheckRequest(t.model.Name(), named.Model(), messages, params) {
		logger.Warn(w.Message, logger.Fields{"code": w.Code, "field": w.Field, "provider": t.providerName()})
	}
}

// Stream runs SendMessages in a goroutine and returns its events on a
// channel, which is closed when the request finishes. The request error, if
// any, is then delivered on the error channel. The caller must drain events.
func (t *ChatTransport) Stream(ctx context.Context, req *ondevice.GenerateRequest) (<-chan ondevice.Event, <-chan error) {
	events := make(chan ondevice.Event, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(events)
		if err := t.SendMessages(ctx, req, ondevice.ChannelSink(events)); err != nil {
			errc <- err
		}
	}()

	return events, errc
}

// ReconnectToStream always returns a nil channel: generation runs in process
// and cannot be resumed.
func (t *ChatTransport) ReconnectToStream(ctx context.Context, chatID string) (<-chan ondevice.Event, error) {
	return nil, nil
}

func (t *ChatTransport) providerName() string {
	if t.model == nil {
		return ""
	}
	return t.model.Name().String()
}
