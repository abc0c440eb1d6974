// Package generate drives the loop that turns an intent into a command:
// assemble the prompt, call the model, extract the command, then accept it or
// retry with an amended intent.
package generate

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/termax/internal/envinfo"
	"github.com/felixgeelhaar/termax/internal/extract"
	"github.com/felixgeelhaar/termax/internal/guard"
	"github.com/felixgeelhaar/termax/internal/memory"
	"github.com/felixgeelhaar/termax/internal/observe"
	"github.com/felixgeelhaar/termax/internal/prompt"
	"github.com/felixgeelhaar/termax/internal/provider"
	"github.com/felixgeelhaar/termax/internal/ui"
)

var (
	// ErrGenerationFailed means the model produced no usable command.
	ErrGenerationFailed = errors.New("failed to generate a command")
	// ErrUnableToGenerate means every attempt was rejected.
	ErrUnableToGenerate = errors.New("unable to generate the command, please try again")
)

// DefaultNeighbors is how many past records are shown to the model.
const DefaultNeighbors = 5

// Snapshotter provides the environment for one attempt.
type Snapshotter interface {
	Snapshot(ctx context.Context, sources ...envinfo.Source) envinfo.Snapshot
}

// Recaller finds past records similar to an intent.
type Recaller interface {
	Query(ctx context.Context, intent string, k int) ([]memory.Neighbor, error)
}

// Request is one user request.
type Request struct {
	// Intent is the user's text. In suggest mode it is the description.
	Intent string
	// Suggest infers the next command from the environment instead of
	// translating Intent directly.
	Suggest bool
	// Source selects the primary data shown in suggest mode.
	Source envinfo.Source
}

// Candidate is a command accepted by the loop.
type Candidate struct {
	Text string
	// SourceIntent is the intent text that produced Text, including any
	// amendments made by rejected attempts.
	SourceIntent     string
	RejectedAttempts int
	// Warning is set when the command matches a dangerous pattern.
	Warning string
}

type Options struct {
	Family    prompt.Family
	Neighbors int
	UI        ui.UI
}

type Orchestrator struct {
	provider provider.Provider
	env      Snapshotter
	memory   Recaller
	guard    *guard.Guard
	obs      *observe.Observer
	opts     Options
}

func New(p provider.Provider, env Snapshotter, mem Recaller, g *guard.Guard, obs *observe.Observer, opts Options) *Orchestrator {
	if opts.Family == "" {
		opts.Family = prompt.FamilyFor(p.Name())
	}
	if opts.Neighbors <= 0 {
		opts.Neighbors = DefaultNeighbors
	}
	if opts.UI == nil {
		opts.UI = ui.SilentUI{}
	}
	if g == nil {
		g = guard.New(guard.DefaultPolicy)
	}
	if obs == nil {
		obs = observe.Discard()
	}
	return &Orchestrator{
		provider: p,
		env:      env,
		memory:   mem,
		guard:    g,
		obs:      obs,
		opts:     opts,
	}
}

// Generate runs the loop until a candidate is accepted or the request fails.
// Each attempt takes exactly one environment snapshot and makes exactly one
// model call.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Candidate, error) {
	defer o.opts.UI.Done()

	intent := req.Intent
	state := StateAssemble
	var instruction, raw, command string

	for attempt := 1; ; {
		switch state {
		case StateAssemble:
			o.opts.UI.UpdateAttempt(attempt)
			instruction = o.assemble(ctx, req, intent)
			state = StateCall

		case StateCall:
			var err error
			raw, err = o.call(ctx, attempt, instruction, intent)
			if err != nil {
				return nil, err
			}
			state = StateExtract

		case StateExtract:
			command = extract.Command(raw)
			state = Decide(o.guard, attempt, command)
			o.obs.Log().Debug().
				Int("attempt", attempt).
				Str("state", state.String()).
				Str("command", command).
				Msg("attempt evaluated")

		case StateReject:
			o.obs.Log().Info().Int("attempt", attempt).Str("command", command).Msg("self-referential command rejected")
			intent += o.guard.AvoidSelfInstruction()
			attempt++
			state = StateAssemble

		case StateAccept:
			c := &Candidate{
				Text:             command,
				SourceIntent:     intent,
				RejectedAttempts: attempt - 1,
			}
			if v := o.guard.CheckDangerous(command); v != nil {
				c.Warning = v.Message
			}
			return c, nil

		case StateGiveUp:
			o.obs.Log().Warn().Int("attempts", attempt).Msg("giving up after repeated self-referential replies")
			return nil, ErrUnableToGenerate

		case StateFailed:
			o.obs.Log().Warn().Int("attempt", attempt).Msg("model returned no usable command")
			return nil, ErrGenerationFailed
		}
	}
}

func (o *Orchestrator) assemble(ctx context.Context, req Request, intent string) string {
	if req.Suggest {
		var sources []envinfo.Source
		if req.Source != "" {
			sources = append(sources, req.Source)
		}
		snap := o.env.Snapshot(ctx, sources...)
		return prompt.Suggest(o.opts.Family, snap, req.Source)
	}

	snap := o.env.Snapshot(ctx)
	var neighbors []memory.Neighbor
	if o.memory != nil {
		n, err := o.memory.Query(ctx, intent, o.opts.Neighbors)
		if err != nil {
			o.obs.Log().Warn().Err(err).Msg("memory lookup failed, continuing without history")
		}
		neighbors = n
	}
	return prompt.Command(o.opts.Family, prompt.Input{Snapshot: snap, Neighbors: neighbors})
}

func (o *Orchestrator) call(ctx context.Context, attempt int, instruction, intent string) (string, error) {
	ctx, span := o.obs.StartSpan(ctx, "generate.call",
		attribute.Int("attempt", attempt),
		attribute.String("provider", o.provider.Name()),
	)
	defer span.End()

	o.opts.UI.UpdateStatus("Generating...")
	raw, err := o.provider.ToCommand(ctx, instruction, intent)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%s: %w", o.provider.Name(), err)
	}
	return raw, nil
}

// Explain asks the model to describe command. It is a single call with no
// retry and no history.
func (o *Orchestrator) Explain(ctx context.Context, command string) (string, error) {
	defer o.opts.UI.Done()

	ctx, span := o.obs.StartSpan(ctx, "generate.explain", attribute.String("provider", o.provider.Name()))
	defer span.End()

	o.opts.UI.UpdateStatus("Explaining...")
	desc, err := o.provider.ToDescription(ctx, prompt.Explain(o.opts.Family), command)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%s: %w", o.provider.Name(), err)
	}
	return desc, nil
}
