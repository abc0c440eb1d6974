package generate

import (
	"strings"

	"github.com/felixgeelhaar/termax/internal/guard"
)

// State is a node of the generation loop.
type State int

const (
	StateAssemble State = iota
	StateCall
	StateExtract
	StateAccept
	StateReject
	StateGiveUp
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAssemble:
		return "assemble"
	case StateCall:
		return "call"
	case StateExtract:
		return "extract"
	case StateAccept:
		return "accept"
	case StateReject:
		return "reject"
	case StateGiveUp:
		return "give_up"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateAccept || s == StateGiveUp || s == StateFailed
}

// Decide is the transition out of StateExtract for the attempt-th attempt
// (1-based). Empty output fails the whole request. Self-referential output
// is rejected and retried until the guard's attempt budget is spent.
func Decide(g *guard.Guard, attempt int, command string) State {
	if strings.TrimSpace(command) == "" {
		return StateFailed
	}
	if v := g.CheckSelfReference(command); v != nil {
		if g.CheckAttempts(attempt) != nil {
			return StateGiveUp
		}
		return StateReject
	}
	return StateAccept
}
