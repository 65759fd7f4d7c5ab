package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
)

const worldSystemPrompt = `You are a world-building assistant for text adventure games.
Generate a rich, detailed world based on the seed prompt provided.
Create an immersive setting with interesting locations, characters, and situations that will make for an engaging text adventure experience.`

// WorldGenerator builds structured world data from a seed prompt.
type WorldGenerator struct {
	model ondevice.Model
	opts  Options
	now   func() time.Time
}

// NewWorldGenerator creates a world generator for model.
func NewWorldGenerator(model ondevice.Model, opts Options) *WorldGenerator {
	return &WorldGenerator{model: model, opts: opts.withDefaults(), now: time.Now}
}

// Generate streams a world for seedPrompt.
//
// While the world is generated, onProgress receives the completed field set
// and the field in progress, at most once per Options.ProgressInterval. A
// final report built from the finished world has an empty Current field.
// Progress and the finished world are also published to Options.World.
// onProgress may be nil.
func (g *WorldGenerator) Generate(ctx context.Context, seedPrompt string, onProgress func(ondevice.FieldProgress)) (*ondevice.WorldData, error) {
	if err := NewGate(g.model, g.opts.NewID).EnsureReady(ctx, nil, nil); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := g.model.GenerateStructured(genCtx, &ondevice.StructuredRequest{
		Schema: ondevice.WorldSchema,
		System: worldSystemPrompt,
		Messages: []ondevice.Message{
			ondevice.UserMessage("Create a text adventure world based on this seed prompt:\n\n" + seedPrompt),
		},
		Params: g.opts.Params,
	})
	if err != nil {
		return nil, &ondevice.GenerationError{Provider: g.model.Name().String(), Cause: err}
	}

	tracker := NewFieldTracker(ondevice.WorldSchema)
	report := func(p ondevice.FieldProgress) {
		if onProgress != nil {
			onProgress(p)
		}
		if g.opts.World != nil {
			g.opts.World.SetProgress(p)
		}
	}

	var final json.RawMessage
	eg, egCtx := errgroup.WithContext(genCtx)
	eg.Go(func() error {
		g.trackFields(egCtx, stream.Partials, tracker, report)
		return nil
	})
	eg.Go(func() error {
		var err error
		final, err = stream.Object(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ondevice.GenerationError{Provider: g.model.Name().String(), Cause: err}
	}

	var world ondevice.WorldData
	if err := json.Unmarshal(final, &world); err != nil {
		return nil, &ondevice.GenerationError{
			Provider: g.model.Name().String(),
			Cause:    fmt.Errorf("failed to decode world: %w", err),
		}
	}

	progress := tracker.Observe(final)
	progress.Current = ""
	logger.Debug("world generated", logger.Fields{"title": world.Title, "completed": len(progress.Completed)})
	report(progress)

	if g.opts.World != nil {
		g.opts.World.SetWorldData(world)
	}
	return &world, nil
}

// trackFields folds partials into tracker until the channel closes. Errors in
// the partial stream are logged only; the final object decides the outcome.
func (g *WorldGenerator) trackFields(ctx context.Context, partials <-chan ondevice.PartialObject, tracker *FieldTracker, report func(ondevice.FieldProgress)) {
	last := g.now()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-partials:
			if !ok {
				return
			}
			if p.Err != nil {
				logger.Warn("world progress tracking failed", logger.Fields{"error": p.Err.Error()})
				continue
			}
			now := g.now()
			if now.Sub(last) < g.opts.ProgressInterval {
				continue
			}
			report(tracker.Observe(p.Raw))
			last = now
		}
	}
}
