package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/termax/internal/generate"
	"github.com/felixgeelhaar/termax/internal/guard"
	"github.com/felixgeelhaar/termax/internal/provider"
	"github.com/felixgeelhaar/termax/internal/shell"
	"github.com/felixgeelhaar/termax/internal/ui"
	"github.com/felixgeelhaar/termax/internal/ui/tui"
)

var (
	verbose      bool
	jsonLogs     bool
	providerName string
	modelName    string
	printOnly    bool
)

// RootCmd represents the base command. Without a subcommand it behaves like
// generate.
var RootCmd = &cobra.Command{
	Use:   "termax [intent...]",
	Short: "Turn natural language into shell commands",
	Long: `Termax translates what you want to do into a shell command for your
platform, using your current directory, past commands and the model of your
choice. You decide whether to execute, explain or revise it.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		runGenerate(args)
	},
}

var generateCmd = &cobra.Command{
	Use:     "generate [intent...]",
	Aliases: []string{"g"},
	Short:   "Generate a command from a description",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runGenerate(args)
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(generateCmd)
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	RootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Override the configured platform")
	RootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Override the configured model")
	RootCmd.Flags().BoolVarP(&printOnly, "print", "p", false, "Only print the command")
	generateCmd.Flags().BoolVarP(&printOnly, "print", "p", false, "Only print the command")
}

// session holds what every model-backed command needs.
type session struct {
	ctx    context.Context
	runner *Runner
	close  func()
}

func newSession(interactive bool) *session {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithCancel(ctx)

	obs := newObserver()
	s := getStore()
	var (
		p    provider.Provider
		once sync.Once
	)
	cleanup := func() {
		once.Do(func() {
			cancel()
			stop()
			if err := closeProvider(p); err != nil {
				obs.Log().Warn().Err(err).Msg("failed to close provider")
			}
			s.Close()
			obs.Close()
		})
	}

	cfg, err := getConfigManager(s).Load()
	if err != nil {
		cleanup()
		exitErr("Failed to load configuration", err)
	}
	if providerName != "" {
		cfg.General.Platform = providerName
	}
	if modelName != "" {
		pc := cfg.Platforms[cfg.General.Platform]
		pc.Model = modelName
		cfg.Platforms[cfg.General.Platform] = pc
	}

	p, err = cfg.Provider()
	if err != nil {
		cleanup()
		exitErr("Failed to initialize provider", err)
	}
	obs.Log().Info().Str("provider", p.Name()).Msg("provider ready")

	var u ui.UI = ui.SilentUI{}
	if interactive {
		u = tui.NewWorking("termax", guard.DefaultPolicy.MaxAttempts, cancel, tea.WithOutput(os.Stderr))
	}

	r := NewRunner(obs, s, cfg, p, u)
	if interactive {
		r.Menu = tuiMenu{p: tui.NewPrompter(os.Stdin, os.Stdout)}
	}
	return &session{ctx: ctx, runner: r, close: cleanup}
}

// closeProvider releases backends that hold a client, such as gemini.
func closeProvider(p provider.Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func runGenerate(args []string) {
	intent := strings.TrimSpace(strings.Join(args, " "))
	if intent == "" {
		exitErr("Nothing to do", errors.New("empty intent"))
	}

	interactive := tui.Interactive()
	sess := newSession(interactive && !printOnly)
	defer sess.close()

	// Without a terminal there is nobody to answer the menu.
	if printOnly || (!interactive && !sess.runner.Config.General.AutoExecute) {
		if err := sess.runner.Print(sess.ctx, intent); err != nil {
			if sess.ctx.Err() != nil {
				return
			}
			sess.close()
			exitErr("Generation failed", err)
		}
		return
	}

	out, err := sess.runner.Generate(sess.ctx, intent)
	if err != nil {
		sess.close()
		exitErr(generationMessage(err), err)
	}
	if out.Executed && !out.Interrupted && out.Result.ExitCode > 0 {
		sess.close()
		os.Exit(out.Result.ExitCode)
	}
}

func generationMessage(err error) string {
	switch {
	case errors.Is(err, generate.ErrGenerationFailed), errors.Is(err, generate.ErrUnableToGenerate):
		return "Generation failed"
	case errors.Is(err, shell.ErrCouldNotRun):
		return "Execution failed"
	default:
		return "Error"
	}
}
