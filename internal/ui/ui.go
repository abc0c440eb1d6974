package ui

import "errors"

// ErrInterrupted is returned by interactive prompts when the user presses
// Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// UI receives progress from long-running operations. Implementations are
// display-only; nothing waits on them for correctness.
type UI interface {
	UpdateStatus(status string)
	UpdateAttempt(attempt int)
	Log(msg string)
	// Done clears any progress indicator.
	Done()
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string) {}
func (s SilentUI) UpdateAttempt(attempt int)  {}
func (s SilentUI) Log(msg string)             {}
func (s SilentUI) Done()                      {}
