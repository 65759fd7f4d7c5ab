package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/haowjy/meridian-ondevice-go"
)

const openingSystemPrompt = `You are the narrator of a text adventure game.
Based on the world data provided, create a concise, engaging opening scene that:
1. Sets the stage by briefly describing the starting location and initial situation
2. Immerses the player with vivid but brief descriptions
3. Presents the player with their first meaningful choice or action
4. Maintains the tone and genre of the adventure

Write in second person ("you", "your"). Keep it SHORT - 2-3 brief paragraphs maximum. Be concise and get to the action quickly.`

// openingCompleteLength is the trimmed length at which a scene counts as written.
const openingCompleteLength = 50

// OpeningProgress reports whether the opening scene has enough text to show.
type OpeningProgress struct {
	IsComplete bool
}

// OpeningSceneGenerator narrates the first scene of a generated world.
type OpeningSceneGenerator struct {
	model ondevice.Model
	opts  Options
}

// NewOpeningSceneGenerator creates an opening scene generator for model.
func NewOpeningSceneGenerator(model ondevice.Model, opts Options) *OpeningSceneGenerator {
	return &OpeningSceneGenerator{model: model, opts: opts.withDefaults()}
}

// Generate returns the opening scene for world. onProgress, if set, is
// called for every partial scene. The scene is stored as the initial
// message of Options.World.
func (g *OpeningSceneGenerator) Generate(ctx context.Context, world *ondevice.WorldData, onProgress func(OpeningProgress)) (string, error) {
	if world == nil {
		return "", &ondevice.ValidationError{Field: "world", Reason: "world is nil", Err: ondevice.ErrInvalidRequest}
	}
	if err := NewGate(g.model, g.opts.NewID).EnsureReady(ctx, nil, nil); err != nil {
		return "", err
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := g.model.GenerateStructured(genCtx, &ondevice.StructuredRequest{
		Schema:   ondevice.OpeningSceneSchema,
		System:   openingSystemPrompt,
		Messages: []ondevice.Message{ondevice.UserMessage(OpeningScenePrompt(world))},
		Params:   g.opts.Params,
	})
	if err != nil {
		return "", &ondevice.GenerationError{Provider: g.model.Name().String(), Cause: err}
	}

	var final json.RawMessage
	eg, egCtx := errgroup.WithContext(genCtx)
	eg.Go(func() error {
		for p := range drain(egCtx, stream.Partials) {
			if onProgress == nil || p.Err != nil {
				continue
			}
			v := gjson.GetBytes(p.Raw, ondevice.OpeningSceneSchema.StreamField)
			if v.Type != gjson.String || v.Str == "" {
				continue
			}
			onProgress(OpeningProgress{IsComplete: len(strings.TrimSpace(v.Str)) >= openingCompleteLength})
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		final, err = stream.Object(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ondevice.GenerationError{Provider: g.model.Name().String(), Cause: err}
	}

	var scene ondevice.OpeningScene
	if err := json.Unmarshal(final, &scene); err != nil {
		return "", &ondevice.GenerationError{
			Provider: g.model.Name().String(),
			Cause:    fmt.Errorf("failed to decode opening scene: %w", err),
		}
	}
	if g.opts.World != nil {
		g.opts.World.SetInitialMessage(scene.OpeningScene)
	}
	return scene.OpeningScene, nil
}

// OpeningScenePrompt renders the narrator request for world.
func OpeningScenePrompt(world *ondevice.WorldData) string {
	var sb strings.Builder
	sb.WriteString("Create the opening scene for this text adventure:\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", world.Title)
	fmt.Fprintf(&sb, "Setting: %s\n", world.Setting)
	fmt.Fprintf(&sb, "Starting Location: %s\n", world.StartingLocation)
	fmt.Fprintf(&sb, "Initial Situation: %s\n", world.InitialSituation)
	fmt.Fprintf(&sb, "Tone: %s\n", world.Tone)
	fmt.Fprintf(&sb, "Genre: %s\n", world.Genre)

	if len(world.Characters) > 0 {
		sb.WriteString("\nCharacters nearby:\n")
		for _, c := range world.Characters {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", c.Name, c.Description, c.Role)
		}
	}
	if len(world.Items) > 0 {
		sb.WriteString("\nItems of note:\n")
		for _, i := range world.Items {
			fmt.Fprintf(&sb, "- %s: %s\n", i.Name, i.Description)
		}
	}

	sb.WriteString("\nBegin the adventure!")
	return sb.String()
}

// drain forwards partials until the channel closes or ctx is done.
func drain(ctx context.Context, partials <-chan ondevice.PartialObject) <-chan ondevice.PartialObject {
	out := make(chan ondevice.PartialObject)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-partials:
				if !ok {
					return
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
