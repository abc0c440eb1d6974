// Package shell runs accepted commands in the user's shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
)

// ErrCouldNotRun means the shell itself could not be started. A command that
// starts and exits non-zero is not an error; see Result.
var ErrCouldNotRun = errors.New("could not run command")

// Result describes a command that ran.
type Result struct {
	ExitCode int
	// Interrupted is set when the user interrupted the command.
	Interrupted bool
}

func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor runs commands through a shell with the terminal attached.
type Executor struct {
	Shell  string
	Args   []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Executor for the current platform: $SHELL -c on Unix,
// PowerShell or cmd.exe on Windows.
func New() *Executor {
	e := &Executor{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	e.Shell, e.Args = detectShell(runtime.GOOS, os.Getenv)
	return e
}

func detectShell(goos string, getenv func(string) string) (string, []string) {
	if goos == "windows" {
		if getenv("PSModulePath") != "" {
			return "powershell", []string{"-NoProfile", "-Command"}
		}
		return "cmd", []string{"/C"}
	}
	if sh := getenv("SHELL"); sh != "" {
		return sh, []string{"-c"}
	}
	return "/bin/sh", []string{"-c"}
}

// Run executes command and waits for it. The process is never killed by
// Run: an interrupt reaches it through the terminal, and Run only records
// that it happened. ctx is consulted for that record, not for cancellation.
func (e *Executor) Run(ctx context.Context, command string) (Result, error) {
	args := append(append([]string{}, e.Args...), command)
	cmd := exec.Command(e.Shell, args...)
	cmd.Dir = e.Dir
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	// Keep this process alive while the child handles the interrupt.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %w", ErrCouldNotRun, err)
	}
	waitErr := cmd.Wait()

	res := Result{}
	select {
	case <-sigs:
		res.Interrupted = true
	default:
	}
	if ctx.Err() != nil {
		res.Interrupted = true
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{ExitCode: -1}, fmt.Errorf("%w: %w", ErrCouldNotRun, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
