package ondevice

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestEvent_Types(t *testing.T) {
	tests := []struct {
		event    Event
		expected EventType
	}{
		{TextStart{ID: "t"}, EventTextStart},
		{TextDelta{ID: "t", Delta: "x"}, EventTextDelta},
		{TextEnd{ID: "t"}, EventTextEnd},
		{ProvisioningProgress{ID: "d", Percent: 10}, EventProvisioningProgress},
		{ProvisioningComplete{ID: "d"}, EventProvisioningComplete},
		{Notification{Message: "m", Level: LevelError}, EventNotification},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			if got := tt.event.Type(); got != tt.expected {
				t.Errorf("Type() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Write(TextDelta{ID: "t", Delta: "a"})
		}()
	}
	wg.Wait()

	if len(rec.Events()) != 10 {
		t.Errorf("recorded %d events, want 10", len(rec.Events()))
	}
	if rec.Text() != "aaaaaaaaaa" {
		t.Errorf("Text() = %q", rec.Text())
	}
}

func TestSinkFunc_AndChannelSink(t *testing.T) {
	var got []EventType
	sink := SinkFunc(func(ev Event) { got = append(got, ev.Type()) })
	sink.Write(TextStart{ID: "t"})
	Discard.Write(TextEnd{ID: "t"})

	if !reflect.DeepEqual(got, []EventType{EventTextStart}) {
		t.Errorf("SinkFunc received %v", got)
	}

	ch := make(ChannelSink, 1)
	ch.Write(TextEnd{ID: "t"})
	if ev := <-ch; ev != (TextEnd{ID: "t"}) {
		t.Errorf("ChannelSink delivered %v", ev)
	}
}

func TestStructuredStream_Object(t *testing.T) {
	partials := make(chan PartialObject)
	final := make(chan FinalObject, 1)
	stream := NewStructuredStream(partials, final)

	close(partials)
	final <- FinalObject{Raw: json.RawMessage(`{"response":"hi"}`)}

	for i := 0; i < 2; i++ {
		raw, err := stream.Object(context.Background())
		if err != nil {
			t.Fatalf("Object() error = %v", err)
		}
		if string(raw) != `{"response":"hi"}` {
			t.Errorf("Object() = %s", raw)
		}
	}
}

func TestStructuredStream_ClosedFinalIsFailure(t *testing.T) {
	final := make(chan FinalObject)
	stream := NewStructuredStream(make(chan PartialObject), final)
	close(final)

	_, err := stream.Object(context.Background())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Object() error = %v, want ErrGenerationFailed", err)
	}
}

func TestStructuredStream_ObjectHonoursContext(t *testing.T) {
	stream := NewStructuredStream(make(chan PartialObject), make(chan FinalObject))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stream.Object(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Object() error = %v, want context.Canceled", err)
	}
}
