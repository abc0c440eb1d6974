package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/felixgeelhaar/termax/internal/action"
	"github.com/felixgeelhaar/termax/internal/ui/tui"
)

var choiceLabels = map[action.Choice]string{
	action.ChoiceCopy:    "Copy",
	action.ChoiceExplain: "Explain",
	action.ChoiceExecute: "Execute",
	action.ChoiceRevise:  "Revise",
	action.ChoiceAbort:   "Abort",
}

// tuiMenu adapts the terminal prompter to the action loop.
type tuiMenu struct {
	p *tui.Prompter
}

func (m tuiMenu) Select(ctx context.Context, title string, choices []action.Choice) (action.Choice, error) {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = choiceLabels[c]
	}
	i, err := m.p.Select(ctx, title, labels)
	if err != nil {
		return "", err
	}
	return choices[i], nil
}

func (m tuiMenu) Input(ctx context.Context, prompt string) (string, error) {
	return m.p.Input(ctx, prompt)
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
