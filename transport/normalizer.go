package transport

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

// Normalizer turns the partial objects of a structured generation into
// append-only text deltas of one streamed field.
type Normalizer struct {
	field    string
	provider string
	coord    *Coordinator
	previous string
}

// NewNormalizer streams the given field through coord.
func NewNormalizer(field string, coord *Coordinator) *Normalizer {
	return &Normalizer{field: field, coord: coord}
}

// WithProvider sets the provider name reported in errors.
func (n *Normalizer) WithProvider(provider string) *Normalizer {
	n.provider = provider
	return n
}

// Text returns the text emitted so far.
func (n *Normalizer) Text() string {
	return n.previous
}

// Run consumes partials until the channel closes, the context is cancelled
// or an error occurs. It reports whether the stream completed normally; only
// then may the caller read the final object.
//
// Abort-classified failures are not errors: Run returns (false, nil). A
// snapshot whose field shrank or diverged fails with an
// *ondevice.InvariantError. Any other failure is an *ondevice.GenerationError.
// In every case the text stream is terminated before Run returns.
func (n *Normalizer) Run(ctx context.Context, partials <-chan ondevice.PartialObject) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			n.coord.Abort()
			return false, nil

		case p, ok := <-partials:
			if n.coord.Cancelled() {
				return false, nil
			}
			if !ok {
				n.coord.Finish()
				return true, nil
			}
			if p.Err != nil {
				return false, n.fail(p.Err)
			}

			current, ok := n.extract(p)
			if !ok || current == n.previous {
				continue
			}
			if !strings.HasPrefix(current, n.previous) {
				err := &ondevice.InvariantError{Field: n.field, Previous: n.previous, Current: current}
				logger.Fault("partial object broke the stream contract", err, logger.Fields{
					"provider": n.provider,
					"field":    n.field,
				})
				n.coord.Finish()
				return false, err
			}

			if !n.coord.Delta(current[len(n.previous):]) {
				return false, nil
			}
			n.previous = current
		}
	}
}

// extract returns the streamed field of a snapshot when it is a string.
// An empty string still counts, so a field that shrinks to "" is caught.
func (n *Normalizer) extract(p ondevice.PartialObject) (string, bool) {
	v := gjson.GetBytes(p.Raw, n.field)
	if v.Type != gjson.String {
		return "", false
	}
	return v.Str, true
}

func (n *Normalizer) fail(err error) error {
	cancelled := n.coord.Cancelled()
	n.coord.Finish()
	if cancelled || ondevice.IsAbortError(err) {
		logger.Debug("generation aborted", logger.Fields{"provider": n.provider, "error": err.Error()})
		return nil
	}
	return &ondevice.GenerationError{Provider: n.provider, Cause: err}
}
