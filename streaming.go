package ondevice

import (
	"context"
	"encoding/json"
	"sync"
)

// EventType identifies a variant of the event union.
type EventType string

// Event type constants
const (
	EventTextStart            EventType = "text-start"
	EventTextDelta            EventType = "text-delta"
	EventTextEnd              EventType = "text-end"
	EventProvisioningProgress EventType = "provisioning-progress"
	EventProvisioningComplete EventType = "provisioning-complete"
	EventNotification         EventType = "notification"
)

// Event is a lifecycle event written to a Sink. The set of variants is closed:
// TextStart, TextDelta, TextEnd, ProvisioningProgress, ProvisioningComplete
// and Notification.
type Event interface {
	Type() EventType
	isEvent()
}

// TextStart opens the text stream identified by ID.
type TextStart struct {
	ID string `json:"id"`
}

// TextDelta appends Delta to the text stream identified by ID.
type TextDelta struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// TextEnd closes the text stream identified by ID. It is terminal for that ID.
type TextEnd struct {
	ID string `json:"id"`
}

// ProvisioningProgress reports model download progress. All progress events of
// one provisioning episode share the same ID.
type ProvisioningProgress struct {
	ID      string `json:"id"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProvisioningComplete ends the provisioning episode identified by ID.
type ProvisioningComplete struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NotificationLevel is the severity of a Notification.
type NotificationLevel string

// Notification levels
const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Message string            `json:"message"`
	Level   NotificationLevel `json:"level"`
}

func (TextStart) Type() EventType            { return EventTextStart }
func (TextDelta) Type() EventType            { return EventTextDelta }
func (TextEnd) Type() EventType              { return EventTextEnd }
func (ProvisioningProgress) Type() EventType { return EventProvisioningProgress }
func (ProvisioningComplete) Type() EventType { return EventProvisioningComplete }
func (Notification) Type() EventType         { return EventNotification }

func (TextStart) isEvent()            {}
func (TextDelta) isEvent()            {}
func (TextEnd) isEvent()              {}
func (ProvisioningProgress) isEvent() {}
func (ProvisioningComplete) isEvent() {}
func (Notification) isEvent()         {}

// Sink is an append-only event writer.
type Sink interface {
	Write(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Write calls f(ev).
func (f SinkFunc) Write(ev Event) { f(ev) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder is a Sink that keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Write appends ev to the log.
func (r *Recorder) Write(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in write order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every recorded event in write order.
func (r *Recorder) Types() []EventType {
	events := r.Events()
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type()
	}
	return out
}

// Text concatenates every recorded text delta.
func (r *Recorder) Text() string {
	var out string
	for _, ev := range r.Events() {
		if d, ok := ev.(TextDelta); ok {
			out += d.Delta
		}
	}
	return out
}

// ChannelSink forwards events to a channel. Write blocks while the channel is full.
type ChannelSink chan Event

// Write sends ev on the channel.
func (c ChannelSink) Write(ev Event) { c <- ev }

// PartialObject is one snapshot of a structured generation in progress.
// Raw is valid JSON conforming to a prefix of the schema; scalar text fields
// only ever grow by appending. Err is set when generation failed; it is the
// last value sent on the channel.
type PartialObject struct {
	Raw json.RawMessage
	Err error
}

// FinalObject is the authoritative result of a structured generation.
type FinalObject struct {
	Raw json.RawMessage
	Err error
}

// StructuredStream is the handle returned by Model.GenerateStructured.
type StructuredStream struct {
	// Partials emits snapshots in order and is closed when generation ends.
	Partials <-chan PartialObject

	ready  chan struct{}
	result FinalObject
}

// NewStructuredStream wraps the channels produced by a model implementation.
// final must deliver exactly one value; a closed final channel is reported as
// a generation failure.
func NewStructuredStream(partials <-chan PartialObject, final <-chan FinalObject) *StructuredStream {
	s := &StructuredStream{Partials: partials, ready: make(chan struct{})}
	go func() {
		fo, ok := <-final
		if !ok {
			fo = FinalObject{Err: ErrGenerationFailed}
		}
		s.result = fo
		close(s.ready)
	}()
	return s
}

// Object waits for the final object. Every call returns the same result.
func (s *StructuredStream) Object(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-s.ready:
		return s.result.Raw, s.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
