package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/felixgeelhaar/termax/internal/action"
	"github.com/felixgeelhaar/termax/internal/config"
	"github.com/felixgeelhaar/termax/internal/embedding"
	"github.com/felixgeelhaar/termax/internal/envinfo"
	"github.com/felixgeelhaar/termax/internal/generate"
	"github.com/felixgeelhaar/termax/internal/guard"
	"github.com/felixgeelhaar/termax/internal/memory"
	"github.com/felixgeelhaar/termax/internal/observe"
	"github.com/felixgeelhaar/termax/internal/provider"
	"github.com/felixgeelhaar/termax/internal/shell"
	"github.com/felixgeelhaar/termax/internal/store"
	"github.com/felixgeelhaar/termax/internal/ui"
)

// Runner wires one invocation: configuration, memory, environment,
// orchestrator and the action loop.
type Runner struct {
	Observer  *observe.Observer
	Store     store.Storage
	Config    *config.Config
	Provider  provider.Provider
	UI        ui.UI
	Menu      action.Menu
	Clipboard action.Clipboard
	Executor  action.Executor
	Out       io.Writer
	// Dir is listed in the environment snapshot instead of the working
	// directory when set.
	Dir string
}

func NewRunner(obs *observe.Observer, s store.Storage, cfg *config.Config, p provider.Provider, u ui.UI) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	return &Runner{
		Observer:  obs,
		Store:     s,
		Config:    cfg,
		Provider:  p,
		UI:        u,
		Clipboard: systemClipboard{},
		Executor:  shell.New(),
		Out:       os.Stdout,
	}
}

// Memory builds the memory store with the configured embedder.
func (r *Runner) Memory() *memory.Memory {
	var e embedding.Embedder = embedding.NewHashing(embedding.DefaultDims)
	if r.Config.General.Embedder == config.EmbedderProvider {
		if pe, ok := r.Provider.(embedding.Embedder); ok {
			e = pe
		} else {
			r.Observer.Log().Warn().Str("provider", r.Provider.Name()).Msg("provider cannot embed, using local embedder")
		}
	}
	return memory.New(r.Store, e, r.Config.MemoryOptions())
}

func (r *Runner) orchestrator(mem *memory.Memory) *generate.Orchestrator {
	env := envinfo.New(envinfo.Options{Dir: r.Dir, Ignore: r.Config.General.Ignore})
	return generate.New(r.Provider, env, mem, guard.New(guard.DefaultPolicy), r.Observer, generate.Options{
		Neighbors: r.Config.General.Neighbors,
		UI:        r.UI,
	})
}

// Print generates a command and writes it to Out without any interaction
// or persistence.
func (r *Runner) Print(ctx context.Context, intent string) error {
	c, err := r.orchestrator(r.Memory()).Generate(ctx, generate.Request{Intent: intent})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Out, c.Text)
	return nil
}

// Generate translates intent and lets the user act on the result.
func (r *Runner) Generate(ctx context.Context, intent string) (*action.Outcome, error) {
	return r.run(ctx, action.ModeGenerate, generate.Request{Intent: intent})
}

// Guess suggests the next command from the environment and source.
func (r *Runner) Guess(ctx context.Context, source envinfo.Source, description string) (*action.Outcome, error) {
	return r.run(ctx, action.ModeGuess, generate.Request{Intent: description, Suggest: true, Source: source})
}

func (r *Runner) run(ctx context.Context, mode action.Mode, req generate.Request) (*action.Outcome, error) {
	if r.Menu == nil && !(mode == action.ModeGenerate && r.Config.General.AutoExecute) {
		return nil, errors.New("an interactive terminal is required")
	}
	mem := r.Memory()
	m := action.New(r.orchestrator(mem), r.Executor, r.Clipboard, r.Menu, mem, r.Observer, r.Out, action.Options{
		AutoExecute: r.Config.General.AutoExecute,
		ShowCommand: r.Config.General.ShowCommand,
	})

	out, err := m.Run(ctx, mode, req)
	if err != nil {
		return out, err
	}
	r.Observer.Log().Info().
		Str("command", out.Command).
		Str("choice", string(out.Last)).
		Str("persisted", strconv.FormatBool(out.Persisted())).
		Msg("session finished")
	return out, nil
}
