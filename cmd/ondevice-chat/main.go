// ondevice-chat is an interactive text adventure on top of the chat transport.
//
// It builds a world from a seed (a catalogue title or free text), narrates an
// opening scene and then streams each reply as it is generated. Ctrl-C
// cancels the whole session.
//
// Usage:
//
//	ondevice-chat [--provider lorem|anthropic] [--model NAME] [--seed TITLE|TEXT]
//	ondevice-chat --list-seeds [QUERY]
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	ondevice "github.com/haowjy/meridian-ondevice-go"
	"github.com/haowjy/meridian-ondevice-go/internal/config"
	"github.com/haowjy/meridian-ondevice-go/internal/logger"
	"github.com/haowjy/meridian-ondevice-go/providers"
	"github.com/haowjy/meridian-ondevice-go/seeds"
	"github.com/haowjy/meridian-ondevice-go/store"
	"github.com/haowjy/meridian-ondevice-go/transport"
)

var version = "dev"

const defaultSeed = "Medieval Fantasy"

type options struct {
	provider    string
	model       string
	seed        string
	plain       bool
	listSeeds   bool
	debug       bool
	maxTokens   int
	temperature float64
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg := config.Load()

	var opts options
	fs := pflag.NewFlagSet("ondevice-chat", pflag.ExitOnError)
	fs.StringVarP(&opts.provider, "provider", "p", string(cfg.Provider), "model provider (lorem, anthropic)")
	fs.StringVarP(&opts.model, "model", "m", cfg.Model, "model name (provider default when empty)")
	fs.StringVarP(&opts.seed, "seed", "s", defaultSeed, "seed title from the catalogue, or a free-text idea")
	fs.BoolVar(&opts.plain, "plain", false, "skip world generation and chat directly")
	fs.BoolVar(&opts.listSeeds, "list-seeds", false, "list catalogue seeds matching the arguments and exit")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens per response (model default when 0)")
	fs.Float64Var(&opts.temperature, "temperature", -1, "sampling temperature (model default when negative)")
	_ = fs.Parse(os.Args[1:])

	logger.EnableDebug(opts.debug)
	flush, err := logger.Init(cfg.SentryDSN, cfg.Environment, version)
	if err != nil {
		logger.Warn("sentry disabled", logger.Fields{"error": err.Error()})
	}
	defer flush()

	if opts.listSeeds {
		listSeeds(os.Stdout, seeds.Default(), strings.Join(fs.Args(), " "))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ondevice-chat: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, opts options, in io.Reader, out io.Writer) error {
	provider := ondevice.ProviderID(strings.ToLower(opts.provider))
	probe := func(key string) (string, bool) {
		if key == ondevice.EnvProvider {
			return string(provider), true
		}
		return os.LookupEnv(key)
	}
	if !ondevice.SupportsCapability(probe) {
		return fmt.Errorf("%w: provider %q", ondevice.ErrCapabilityUnavailable, provider)
	}

	model, err := providers.New(provider, opts.model, cfg.AnthropicAPIKey)
	if err != nil {
		return err
	}
	logger.Info("session started", logger.Fields{"provider": provider, "model": opts.model})

	suggestions := store.NewSuggestions()
	worlds := store.NewWorld()
	topts := transport.Options{
		Params:      requestParams(opts),
		Suggestions: suggestions,
		World:       worlds,
	}
	p := &printer{w: out}

	var history []ondevice.Message
	if !opts.plain {
		scene, err := startAdventure(ctx, model, topts, worlds, opts.seed, p)
		if err != nil {
			return err
		}
		history = append(history, ondevice.AssistantMessage(scene))
	}

	chat := transport.NewChatTransport(model, topts)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		history = append(history, ondevice.UserMessage(line))
		rec := &ondevice.Recorder{}
		sink := ondevice.SinkFunc(func(ev ondevice.Event) {
			rec.Write(ev)
			p.Write(ev)
		})

		err := chat.SendMessages(ctx, &ondevice.GenerateRequest{Messages: history}, sink)
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			// The notification is already printed; drop the unanswered turn.
			history = history[:len(history)-1]
			if ondevice.IsRetryable(err) {
				continue
			}
			return err
		}

		history = append(history, ondevice.AssistantMessage(rec.Text()))
		for _, s := range suggestions.Get() {
			fmt.Fprintf(out, "  * %s\n", s)
		}
	}
	return scanner.Err()
}

// startAdventure generates the world and opening scene for seed.
func startAdventure(ctx context.Context, model ondevice.Model, opts transport.Options, worlds *store.World, seed string, p *printer) (string, error) {
	prompt, err := resolveSeed(ctx, seeds.Default(), transport.NewPromptTransformer(model, opts), seed)
	if err != nil {
		return "", fmt.Errorf("failed to prepare seed prompt: %w", err)
	}
	worlds.SetSeedPrompt(prompt)

	fmt.Fprintln(p.w, "Building your world...")
	world, err := transport.NewWorldGenerator(model, opts).Generate(ctx, prompt, p.worldProgress)
	if err != nil {
		return "", fmt.Errorf("failed to generate world: %w", err)
	}
	fmt.Fprintf(p.w, "\n\n== %s ==\n%s\n\n", world.Title, world.Description)

	scene, err := transport.NewOpeningSceneGenerator(model, opts).Generate(ctx, world, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate opening scene: %w", err)
	}
	fmt.Fprintln(p.w, scene)
	return scene, nil
}

type transformer interface {
	Transform(ctx context.Context, input string) (string, error)
}

// resolveSeed returns the prompt of the catalogue seed titled seed, or the
// transformed free-text idea. An empty seed selects the default seed.
func resolveSeed(ctx context.Context, catalogue *seeds.Catalogue, t transformer, seed string) (string, error) {
	if strings.TrimSpace(seed) == "" {
		seed = defaultSeed
	}
	if s, ok := catalogue.Find(seed); ok {
		return s.Prompt, nil
	}
	prompt, err := t.Transform(ctx, seed)
	if errors.Is(err, transport.ErrEmptyPrompt) {
		return "", fmt.Errorf("could not turn %q into an adventure, try --list-seeds", seed)
	}
	return prompt, err
}

func listSeeds(w io.Writer, catalogue *seeds.Catalogue, query string) {
	matches := catalogue.Search(query)
	if len(matches) == 0 {
		fmt.Fprintf(w, "No seeds match %q\n", query)
		return
	}
	for _, s := range matches {
		fmt.Fprintf(w, "%-24s %s\n", s.Title, s.Description)
	}
}

func requestParams(opts options) *ondevice.RequestParams {
	var params ondevice.RequestParams
	if opts.maxTokens > 0 {
		params.MaxTokens = &opts.maxTokens
	}
	if opts.temperature >= 0 {
		params.Temperature = &opts.temperature
	}
	if params.MaxTokens == nil && params.Temperature == nil {
		return nil
	}
	return &params
}

// printer renders transport events to the terminal.
type printer struct {
	w io.Writer
}

func (p *printer) Write(ev ondevice.Event) {
	switch e := ev.(type) {
	case ondevice.TextDelta:
		fmt.Fprint(p.w, e.Delta)
	case ondevice.TextEnd:
		fmt.Fprintln(p.w)
	case ondevice.ProvisioningProgress:
		fmt.Fprintf(p.w, "\r%s %3d%%", e.Message, e.Percent)
	case ondevice.ProvisioningComplete:
		fmt.Fprintf(p.w, "\n%s\n", e.Message)
	case ondevice.Notification:
		fmt.Fprintf(p.w, "\n[%s] %s\n", e.Level, e.Message)
	}
}

func (p *printer) worldProgress(fp ondevice.FieldProgress) {
	if fp.Current == "" {
		fmt.Fprintf(p.w, "\r%d fields done", len(fp.Completed))
		return
	}
	fmt.Fprintf(p.w, "\r%d fields done, writing %-20s", len(fp.Completed), fp.Current)
}
