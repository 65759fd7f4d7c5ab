package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haowjy/meridian-ondevice-go"
)

// fakeModel is a scripted ondevice.Model.
type fakeModel struct {
	// availability is returned call by call; the last entry repeats.
	availability []ondevice.Availability
	availErr     error

	ticks        []float64
	provisionErr error

	partials    []string
	partialErr  error // sent after partials
	final       string
	finalErr    error
	generateErr error

	// hang keeps the stream open after partials until the context is done.
	hang bool

	mu        sync.Mutex
	calls     int
	requests  []*ondevice.StructuredRequest
	provision atomic.Int32
}

func (m *fakeModel) Name() ondevice.ProviderID {
	return ondevice.ProviderLorem
}

func (m *fakeModel) Availability(ctx context.Context) (ondevice.Availability, error) {
	if m.availErr != nil {
		return "", m.availErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.availability) == 0 {
		return ondevice.AvailabilityAvailable, nil
	}
	i := min(m.calls, len(m.availability)-1)
	m.calls++
	return m.availability[i], nil
}

func (m *fakeModel) ProvisionWithProgress(ctx context.Context, onTick func(float64)) error {
	m.provision.Add(1)
	for _, f := range m.ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		onTick(f)
	}
	return m.provisionErr
}

func (m *fakeModel) GenerateStructured(ctx context.Context, req *ondevice.StructuredRequest) (*ondevice.StructuredStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.generateErr != nil {
		return nil, m.generateErr
	}

	partials := make(chan ondevice.PartialObject)
	final := make(chan ondevice.FinalObject, 1)

	go func() {
		defer close(final)
		defer close(partials)

		for _, raw := range m.partials {
			select {
			case partials <- ondevice.PartialObject{Raw: json.RawMessage(raw)}:
			case <-ctx.Done():
				final <- ondevice.FinalObject{Err: ctx.Err()}
				return
			}
		}
		if m.partialErr != nil {
			select {
			case partials <- ondevice.PartialObject{Err: m.partialErr}:
			case <-ctx.Done():
			}
			final <- ondevice.FinalObject{Err: m.partialErr}
			return
		}
		if m.hang {
			<-ctx.Done()
			final <- ondevice.FinalObject{Err: ctx.Err()}
			return
		}
		if m.finalErr != nil {
			final <- ondevice.FinalObject{Err: m.finalErr}
			return
		}
		final <- ondevice.FinalObject{Raw: json.RawMessage(m.final)}
	}()

	return ondevice.NewStructuredStream(partials, final), nil
}

func (m *fakeModel) lastRequest() *ondevice.StructuredRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *fakeModel) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// stalledModel fails the final object while leaving the partial channel open.
type stalledModel struct {
	*fakeModel
	err error
}

func (m *stalledModel) GenerateStructured(ctx context.Context, req *ondevice.StructuredRequest) (*ondevice.StructuredStream, error) {
	final := make(chan ondevice.FinalObject, 1)
	final <- ondevice.FinalObject{Err: m.err}
	return ondevice.NewStructuredStream(make(chan ondevice.PartialObject), final), nil
}

// sequentialIDs returns deterministic identifiers: text-1, download-2, ...
func sequentialIDs() func(prefix string) string {
	var n atomic.Int64
	return func(prefix string) string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// chatPartials renders response snapshots as chat partial objects.
func chatPartials(responses ...string) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		b, _ := json.Marshal(map[string]string{"response": r})
		out[i] = string(b)
	}
	return out
}

// cancelOn is a sink that cancels once an event of type trigger is written.
type cancelOn struct {
	ondevice.Recorder
	trigger ondevice.EventType
	cancel  context.CancelFunc
	once    sync.Once
}

func (c *cancelOn) Write(ev ondevice.Event) {
	c.Recorder.Write(ev)
	if ev.Type() == c.trigger {
		c.once.Do(c.cancel)
	}
}
