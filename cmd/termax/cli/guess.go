package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/termax/internal/envinfo"
	"github.com/felixgeelhaar/termax/internal/ui/tui"
)

var (
	guessSource      string
	guessDescription string
)

var sourceOptions = []string{"git", "docker", "none"}

var guessCmd = &cobra.Command{
	Use:   "guess",
	Short: "Suggest the next command from your environment",
	Long: `Guess looks at your directory and, optionally, a primary data source
(git or docker) and suggests the command you are most likely to run next.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !tui.Interactive() {
			exitErr("Guess needs a terminal", fmt.Errorf("stdin or stdout is not a TTY"))
		}
		sess := newSession(true)
		defer sess.close()

		menu := sess.runner.Menu.(tuiMenu)
		source := guessSource
		if !cmd.Flags().Changed("source") {
			i, err := menu.p.Select(sess.ctx, "Primary data source:", sourceOptions)
			if err != nil {
				return
			}
			source = sourceOptions[i]
		}
		src, err := parseSource(source)
		if err != nil {
			sess.close()
			exitErr("Invalid source", err)
		}

		description := guessDescription
		if !cmd.Flags().Changed("description") {
			if description, err = menu.Input(sess.ctx, "What are you trying to do? (optional)"); err != nil {
				return
			}
		}

		if _, err := sess.runner.Guess(sess.ctx, src, description); err != nil {
			sess.close()
			exitErr(generationMessage(err), err)
		}
	},
}

func parseSource(s string) (envinfo.Source, error) {
	switch s {
	case "git":
		return envinfo.SourceGit, nil
	case "docker":
		return envinfo.SourceDocker, nil
	case "", "none":
		return "", nil
	}
	return "", fmt.Errorf("unknown source %q (git, docker, none)", s)
}

func init() {
	RootCmd.AddCommand(guessCmd)
	guessCmd.Flags().StringVarP(&guessSource, "source", "s", "", "Primary data source: git, docker or none")
	guessCmd.Flags().StringVarP(&guessDescription, "description", "d", "", "What you are trying to do")
}
