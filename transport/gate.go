package transport

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

const (
	downloadingMessage = "Downloading browser AI model..."
	downloadedMessage  = "Model finished downloading! Getting ready for inference..."
)

// Gate checks model readiness and drives provisioning when required.
type Gate struct {
	model ondevice.Model
	newID func(prefix string) string

	mu    sync.Mutex
	state ondevice.ProvisioningState
}

// NewGate creates a gate for model. newID may be nil.
func NewGate(model ondevice.Model, newID func(prefix string) string) *Gate {
	if newID == nil {
		newID = Options{}.withDefaults().NewID
	}
	return &Gate{model: model, newID: newID}
}

// State returns the current provisioning state.
func (g *Gate) State() ondevice.ProvisioningState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) setState(s ondevice.ProvisioningState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

// CheckAvailability queries the model. It fails with
// ondevice.ErrCapabilityUnavailable when the capability cannot be used at all.
func (g *Gate) CheckAvailability(ctx context.Context) (ondevice.Availability, error) {
	if g.model == nil {
		return "", fmt.Errorf("%w: no model configured", ondevice.ErrCapabilityUnavailable)
	}
	a, err := g.model.Availability(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ondevice.ErrCapabilityUnavailable, err)
	}

	switch a {
	case ondevice.AvailabilityAvailable:
		g.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseReady})
	case ondevice.AvailabilityDownloadable, ondevice.AvailabilityDownloading:
		g.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseReadyToProvision})
	default:
		g.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseUnavailable})
	}
	return a, nil
}

// EnsureReady returns once the model is available.
//
// Any other availability, unavailable included, runs one provisioning
// attempt followed by a re-check. Progress events are written to sink under a
// single episode ID and onProgress receives non-decreasing percentages ending
// with exactly one call of 100. Nothing is written when the model is
// already available. sink and onProgress may be nil.
func (g *Gate) EnsureReady(ctx context.Context, sink ondevice.Sink, onProgress func(percent int)) error {
	if sink == nil {
		sink = ondevice.Discard
	}

	a, err := g.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	if a == ondevice.AvailabilityAvailable {
		return nil
	}

	ep := &episode{gate: g, sink: sink, onProgress: onProgress}
	g.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseProvisioning})
	logger.Debug("provisioning model", logger.Fields{"provider": g.model.Name(), "availability": a})

	if err := g.model.ProvisionWithProgress(ctx, ep.tick); err != nil {
		g.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseUnavailable})
		return &ondevice.ProvisioningError{
			Provider: g.model.Name().String(),
			Reason:   "provisioning did not complete",
			Err:      err,
		}
	}

	a, err = g.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	if a != ondevice.AvailabilityAvailable {
		return &ondevice.ProvisioningError{
			Provider: g.model.Name().String(),
			Reason:   fmt.Sprintf("model is not available after provisioning: %s", a),
		}
	}

	ep.complete()
	return nil
}

// episode is one provisioning run. Ticks may arrive from any goroutine.
type episode struct {
	gate       *Gate
	sink       ondevice.Sink
	onProgress func(percent int)

	mu      sync.Mutex
	id      string
	percent int
	done    bool
}

func (e *episode) ensureID() string {
	if e.id == "" {
		e.id = e.gate.newID("download")
	}
	return e.id
}

func (e *episode) tick(fraction float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done || math.IsNaN(fraction) {
		return
	}
	percent := int(math.Round(fraction * 100))
	if percent >= 100 {
		// Completion is reported once the model is confirmed available.
		return
	}
	if percent < e.percent {
		percent = e.percent
	}
	e.percent = percent

	e.gate.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseProvisioning, Percent: percent})
	e.sink.Write(ondevice.ProvisioningProgress{ID: e.ensureID(), Percent: percent, Message: downloadingMessage})
	if e.onProgress != nil {
		e.onProgress(percent)
	}
}

func (e *episode) complete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done {
		return
	}
	e.done = true
	e.percent = 100

	e.gate.setState(ondevice.ProvisioningState{Phase: ondevice.PhaseReady})
	e.sink.Write(ondevice.ProvisioningComplete{ID: e.ensureID(), Message: downloadedMessage})
	if e.onProgress != nil {
		e.onProgress(100)
	}
}
