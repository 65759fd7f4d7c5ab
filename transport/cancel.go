package transport

import (
	"context"
	"sync"

	"github.com/haowjy/meridian-ondevice-go"
)

type coordinatorState int

const (
	stateIdle coordinatorState = iota
	stateActive
	stateCancelRequested
	stateTerminated
)

func (s coordinatorState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateActive:
		return "active"
	case stateCancelRequested:
		return "cancel-requested"
	case stateTerminated:
		return "terminated"
	default:
		return "invalid"
	}
}

// Coordinator owns the text stream of one request. Every text event goes
// through it, so writes from the abort listener and the normalizer are
// serialized, and text-end is written exactly once for an opened stream.
type Coordinator struct {
	sink  ondevice.Sink
	newID func(prefix string) string

	mu        sync.Mutex
	ctx       context.Context
	state     coordinatorState
	textID    string
	cancelled bool
	stop      func() bool
}

// NewCoordinator creates an idle coordinator writing to sink.
func NewCoordinator(sink ondevice.Sink, newID func(prefix string) string) *Coordinator {
	if sink == nil {
		sink = ondevice.Discard
	}
	if newID == nil {
		newID = Options{}.withDefaults().NewID
	}
	return &Coordinator{sink: sink, newID: newID, ctx: context.Background()}
}

// Watch moves the coordinator to active and attaches an abort listener to
// ctx. Call Release when done to detach it.
func (c *Coordinator) Watch(ctx context.Context) {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	c.state = stateActive
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, c.Abort)

	c.mu.Lock()
	c.stop = stop
	terminated := c.state == stateTerminated
	c.mu.Unlock()
	if terminated {
		stop()
	}
}

// Delta appends text to the stream, opening it first if needed.
// It returns false once the stream is terminated; the caller must stop.
func (c *Coordinator) Delta(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		c.abortLocked()
	}
	if c.state == stateTerminated {
		return false
	}
	if c.textID == "" {
		c.textID = c.newID("text")
		c.sink.Write(ondevice.TextStart{ID: c.textID})
	}
	if text != "" {
		c.sink.Write(ondevice.TextDelta{ID: c.textID, Delta: text})
	}
	return true
}

// Finish terminates the stream on the normal or error path, writing the
// owed text-end. It is a no-op once terminated.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminateLocked()
}

// Abort is the abort listener. It writes the owed text-end immediately and
// terminates the stream. It is a no-op once terminated.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
}

func (c *Coordinator) abortLocked() {
	if c.state == stateTerminated {
		return
	}
	c.state = stateCancelRequested
	c.cancelled = true
	c.terminateLocked()
}

func (c *Coordinator) terminateLocked() {
	if c.state == stateTerminated {
		return
	}
	if c.textID != "" {
		c.sink.Write(ondevice.TextEnd{ID: c.textID})
	}
	c.state = stateTerminated
	if c.stop != nil {
		c.stop()
	}
}

// Cancelled reports whether the stream was terminated by cancellation, or
// whether the watched context is done. A done context terminates the stream.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		c.abortLocked()
	}
	return c.cancelled
}

// Terminated reports whether the stream reached its terminal state.
func (c *Coordinator) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateTerminated
}

// TextID returns the stream ID, or "" if no text was emitted.
func (c *Coordinator) TextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textID
}

// Release detaches the abort listener. Safe to call more than once.
func (c *Coordinator) Release() {
	c.mu.Lock()
	stop := c.stop
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}
