package lorem

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/tidwall/sjson"

	ondevice "github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

// ErrCutoff is reported by cutoff models halfway through the streamed field.
var ErrCutoff = errors.New("lorem: generation stopped at max_tokens")

// ErrNotInstalled is returned by Availability for "broken" models.
var ErrNotInstalled = errors.New("lorem: language model capability is not installed")

const (
	defaultStreamWords = 40
	provisionTicks     = 10
)

// Provider is a mock on-device model that generates lorem ipsum objects.
// Used for testing and development without a model runtime.
//
// The model name selects behaviour:
//   - speed: "slow", "fast", "medium", "instant"
//   - "download": starts downloadable and becomes available after provisioning
//   - "unavailable": never available
//   - "broken": Availability fails
//   - "cutoff", "small": generation fails halfway through the streamed field
type Provider struct {
	model string

	mu          sync.Mutex
	generator   *loremgen.Lorem
	provisioned bool
	downloading bool
}

// NewProvider creates a lorem model. The model name must start with "lorem-".
func NewProvider(model string) (*Provider, error) {
	p := &Provider{model: model, generator: loremgen.New()}
	if !p.SupportsModel(model) {
		return nil, &ondevice.ModelError{
			Model:    model,
			Provider: p.Name().String(),
			Reason:   "model not supported by Lorem provider (must start with 'lorem-')",
			Err:      ondevice.ErrInvalidModel,
		}
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() ondevice.ProviderID {
	return ondevice.ProviderLorem
}

// Model returns the model name the provider was created with.
func (p *Provider) Model() string {
	return p.model
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-download"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Availability reports the simulated readiness of the model.
func (p *Provider) Availability(ctx context.Context) (ondevice.Availability, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(p.model, "broken"):
		return "", ErrNotInstalled
	case strings.Contains(p.model, "unavailable"):
		return ondevice.AvailabilityUnavailable, nil
	case !strings.Contains(p.model, "download"):
		return ondevice.AvailabilityAvailable, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.provisioned:
		return ondevice.AvailabilityAvailable, nil
	case p.downloading:
		return ondevice.AvailabilityDownloading, nil
	default:
		return ondevice.AvailabilityDownloadable, nil
	}
}

// ProvisionWithProgress simulates a model download in ten ticks. Models that
// need no download return immediately.
func (p *Provider) ProvisionWithProgress(ctx context.Context, onTick func(fraction float64)) error {
	if !strings.Contains(p.model, "download") {
		return nil
	}

	p.mu.Lock()
	if p.provisioned {
		p.mu.Unlock()
		return nil
	}
	p.downloading = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.downloading = false
		p.mu.Unlock()
	}()

	logger.Debug("[LOREM] Provisioning started", logger.Fields{"model": p.model})
	delay := getStreamDelay(p.model)
	for i := 1; i <= provisionTicks; i++ {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		if onTick != nil {
			onTick(float64(i) / provisionTicks)
		}
	}

	p.mu.Lock()
	p.provisioned = true
	p.mu.Unlock()
	logger.Debug("[LOREM] Provisioning complete", logger.Fields{"model": p.model})
	return nil
}

// GenerateStructured fills req.Schema with lorem ipsum, emitting a snapshot
// after every word of a string field and every element of an array.
// The streamed field receives MaxTokens words (default 40); other strings a
// short sentence.
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

	streamWords := req.Params.GetMaxTokens(defaultStreamWords)
	partials := make(chan ondevice.PartialObject, 10)
	final := make(chan ondevice.FinalObject, 1)

	g := &generation{
		provider:    p,
		ctx:         ctx,
		schema:      req.Schema,
		streamWords: streamWords,
		delay:       getStreamDelay(p.model),
		cutoff:      isCutoffModel(p.model),
		partials:    partials,
		raw:         "{}",
	}

	go func() {
		defer close(partials)

		logger.Debug("[LOREM] GenerateStructured started", logger.Fields{
			"model":        p.model,
			"schema":       req.Schema.Name,
			"stream_words": streamWords,
			"input_tokens": estimateTokens(req.Messages),
		})

		if err := g.run(); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				g.send(ondevice.PartialObject{Err: err})
			}
			final <- ondevice.FinalObject{Err: err}
			return
		}

		logger.Debug("[LOREM] GenerateStructured complete", logger.Fields{"model": p.model, "snapshots": g.snapshots})
		final <- ondevice.FinalObject{Raw: json.RawMessage(g.raw)}
	}()

	return ondevice.NewStructuredStream(partials, final), nil
}

// generation is the state of one GenerateStructured call.
type generation struct {
	provider    *Provider
	ctx         context.Context
	schema      *ondevice.Schema
	streamWords int
	delay       time.Duration
	cutoff      bool
	partials    chan<- ondevice.PartialObject

	raw       string
	snapshots int
}

func (g *generation) run() error {
	for _, f := range g.schema.Fields {
		var err error
		switch f.Type {
		case ondevice.FieldString:
			err = g.streamString(f)
		case ondevice.FieldBoolean:
			err = g.set(f.Name, true)
		case ondevice.FieldArray:
			err = g.streamArray(f)
		case ondevice.FieldObject:
			err = g.set(f.Name, g.provider.object(f.Properties))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// streamString grows a string field one word at a time.
func (g *generation) streamString(f ondevice.Field) error {
	var text string
	if f.Name == g.schema.StreamField {
		text = g.provider.textWords(g.streamWords)
	} else {
		text = g.provider.sentence(3, 10)
	}
	words := strings.Fields(text)

	for i := range words {
		if g.cutoff && f.Name == g.schema.StreamField && i == len(words)/2 {
			return ErrCutoff
		}
		if err := g.set(f.Name, strings.Join(words[:i+1], " ")); err != nil {
			return err
		}
	}
	return nil
}

// streamArray appends whole elements to an array field.
func (g *generation) streamArray(f ondevice.Field) error {
	if err := g.set(f.Name, []any{}); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		var value any
		switch {
		case f.Items == nil || f.Items.Type == ondevice.FieldString:
			value = g.provider.question()
		case f.Items.Type == ondevice.FieldObject:
			value = g.provider.object(f.Items.Properties)
		default:
			value = true
		}
		if err := g.set(f.Name+".-1", value); err != nil {
			return err
		}
	}
	return nil
}

// set writes value at path and emits the resulting snapshot.
func (g *generation) set(path string, value any) error {
	raw, err := sjson.Set(g.raw, path, value)
	if err != nil {
		return err
	}
	g.raw = raw
	if err := sleep(g.ctx, g.delay); err != nil {
		return err
	}
	if !g.send(ondevice.PartialObject{Raw: json.RawMessage(raw)}) {
		return g.ctx.Err()
	}
	g.snapshots++
	return nil
}

func (g *generation) send(p ondevice.PartialObject) bool {
	select {
	case g.partials <- p:
		return true
	case <-g.ctx.Done():
		return false
	}
}

func (p *Provider) object(props []ondevice.Field) map[string]any {
	out := make(map[string]any, len(props))
	for _, prop := range props {
		switch {
		case prop.Type == ondevice.FieldBoolean:
			out[prop.Name] = true
		case prop.Name == "name":
			out[prop.Name] = capitalize(p.word(4, 9))
		default:
			out[prop.Name] = p.sentence(3, 8)
		}
	}
	return out
}

func (p *Provider) word(min, max int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generator.Word(min, max)
}

func (p *Provider) sentence(min, max int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generator.Sentence(min, max)
}

func (p *Provider) question() string {
	return strings.TrimSuffix(p.sentence(3, 8), ".") + "?"
}

// textWords generates lorem ipsum text with exactly targetWords words.
func (p *Provider) textWords(targetWords int) string {
	var words []string
	for len(words) < targetWords {
		words = append(words, strings.Fields(p.sentence(5, 15))...)
	}
	return strings.Join(words[:targetWords], " ")
}

// getStreamDelay returns the delay between snapshots based on the model name.
// - lorem-slow: 2 snapshots/second (500ms)
// - lorem-fast: 30 snapshots/second (33ms)
// - lorem-medium: 10 snapshots/second (100ms)
// - lorem-instant: no delay
// - default: 10 snapshots/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "instant") {
		return 0
	}
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// isCutoffModel returns true if the model should fail mid-stream.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff") || strings.Contains(model, "small")
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func estimateTokens(messages []ondevice.Message) int {
	totalWords := 0
	for _, msg := range messages {
		totalWords += len(strings.Fields(msg.Text()))
	}
	return totalWords
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
