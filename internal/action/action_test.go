package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/termax/internal/generate"
	"github.com/felixgeelhaar/termax/internal/memory"
	"github.com/felixgeelhaar/termax/internal/shell"
	"github.com/felixgeelhaar/termax/internal/ui"
)

type fakeGenerator struct {
	commands     []string
	errs         []error
	requests     []generate.Request
	explanations []string
}

func (f *fakeGenerator) Generate(ctx context.Context, req generate.Request) (*generate.Candidate, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	cmd := f.commands[len(f.commands)-1]
	if i < len(f.commands) {
		cmd = f.commands[i]
	}
	return &generate.Candidate{Text: cmd, SourceIntent: req.Intent}, nil
}

func (f *fakeGenerator) Explain(ctx context.Context, command string) (string, error) {
	f.explanations = append(f.explanations, command)
	return "explains " + command, nil
}

type fakeExecutor struct {
	result shell.Result
	err    error
	ran    []string
}

func (f *fakeExecutor) Run(ctx context.Context, command string) (shell.Result, error) {
	f.ran = append(f.ran, command)
	return f.result, f.err
}

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

type fakeMenu struct {
	choices  []Choice
	inputs   []string
	selected int
	asked    int
	err      error
}

func (f *fakeMenu) Select(ctx context.Context, title string, choices []Choice) (Choice, error) {
	if f.selected >= len(f.choices) {
		if f.err != nil {
			return "", f.err
		}
		return ChoiceAbort, nil
	}
	c := f.choices[f.selected]
	f.selected++
	return c, nil
}

func (f *fakeMenu) Input(ctx context.Context, prompt string) (string, error) {
	if f.asked >= len(f.inputs) {
		return "", ui.ErrInterrupted
	}
	s := f.inputs[f.asked]
	f.asked++
	return s, nil
}

type fakeRecorder struct {
	added []memory.Record
	err   error
}

func (f *fakeRecorder) Add(ctx context.Context, intent, command string) (*memory.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := memory.Record{ID: "r", Intent: intent, Command: command}
	f.added = append(f.added, r)
	return &r, nil
}

type harness struct {
	gen  *fakeGenerator
	exec *fakeExecutor
	clip *fakeClipboard
	menu *fakeMenu
	rec  *fakeRecorder
	out  *bytes.Buffer
}

func newHarness(commands ...string) *harness {
	return &harness{
		gen:  &fakeGenerator{commands: commands},
		exec: &fakeExecutor{},
		clip: &fakeClipboard{},
		menu: &fakeMenu{},
		rec:  &fakeRecorder{},
		out:  &bytes.Buffer{},
	}
}

func (h *harness) machine(opts Options) *Machine {
	return New(h.gen, h.exec, h.clip, h.menu, h.rec, nil, h.out, opts)
}

func TestRun_ExecuteSuccessPersistsOnce(t *testing.T) {
	h := newHarness("ls -la")
	h.menu.choices = []Choice{ChoiceExecute}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "list files"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Executed || !out.Persisted() {
		t.Errorf("Expected executed and persisted outcome, got %+v", out)
	}
	if len(h.rec.added) != 1 {
		t.Fatalf("Expected exactly one record, got %d", len(h.rec.added))
	}
	if h.rec.added[0].Intent != "list files" || h.rec.added[0].Command != "ls -la" {
		t.Errorf("Unexpected record: %+v", h.rec.added[0])
	}
}

func TestRun_ExecuteFailureDoesNotPersist(t *testing.T) {
	h := newHarness("false")
	h.exec.result = shell.Result{ExitCode: 1}
	h.menu.choices = []Choice{ChoiceExecute}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "fail"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Persisted() || len(h.rec.added) != 0 {
		t.Error("Expected no record for a failed command")
	}
	if !strings.Contains(h.out.String(), "status 1") {
		t.Errorf("Expected exit status in output, got %q", h.out.String())
	}
}

func TestRun_InterruptedExecutionPersists(t *testing.T) {
	h := newHarness("sleep 100")
	h.exec.result = shell.Result{ExitCode: -1, Interrupted: true}
	h.menu.choices = []Choice{ChoiceExecute}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "wait"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Interrupted || !out.Persisted() {
		t.Errorf("Expected interrupted run to be remembered, got %+v", out)
	}
}

func TestRun_InterruptAtMenuTerminates(t *testing.T) {
	h := newHarness("ls")
	h.menu.err = ui.ErrInterrupted

	out, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "x"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Interrupted {
		t.Error("Expected interrupted outcome")
	}
	if len(h.exec.ran) != 0 || len(h.rec.added) != 0 {
		t.Error("Expected no execution and no record")
	}
}

func TestRun_CouldNotRun(t *testing.T) {
	h := newHarness("ls")
	h.exec.err = shell.ErrCouldNotRun
	h.menu.choices = []Choice{ChoiceExecute}

	_, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "x"})
	if !errors.Is(err, shell.ErrCouldNotRun) {
		t.Errorf("Expected ErrCouldNotRun, got %v", err)
	}
	if len(h.rec.added) != 0 {
		t.Error("Expected no record")
	}
}

func TestRun_StoreErrorIsReported(t *testing.T) {
	h := newHarness("ls")
	h.rec.err = memory.ErrStoreWrite
	h.menu.choices = []Choice{ChoiceExecute}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "x"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !errors.Is(out.StoreErr, memory.ErrStoreWrite) {
		t.Errorf("Expected store error on outcome, got %v", out.StoreErr)
	}
	if !out.Executed {
		t.Error("Expected command to have run")
	}
}

func TestRun_Revise(t *testing.T) {
	h := newHarness("zip -r backup.zip .", "tar czf backup.tgz .")
	h.menu.choices = []Choice{ChoiceRevise, ChoiceExecute}
	h.menu.inputs = []string{"use tar instead"}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "backup my project"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.gen.requests) != 2 {
		t.Fatalf("Expected 2 generations, got %d", len(h.gen.requests))
	}
	if got := h.gen.requests[1].Intent; !strings.HasSuffix(got, "Revised Command: use tar instead") {
		t.Errorf("Unexpected revised intent %q", got)
	}
	if !strings.HasPrefix(h.gen.requests[1].Intent, "backup my project") {
		t.Errorf("Revised intent lost the original text: %q", h.gen.requests[1].Intent)
	}
	if out.Command != "tar czf backup.tgz ." {
		t.Errorf("Expected revised command, got %q", out.Command)
	}
	if len(h.exec.ran) != 1 || h.exec.ran[0] != "tar czf backup.tgz ." {
		t.Errorf("Unexpected executions: %v", h.exec.ran)
	}
}

func TestRun_EmptyRevisionReturnsToMenu(t *testing.T) {
	h := newHarness("ls")
	h.menu.choices = []Choice{ChoiceRevise, ChoiceAbort}
	h.menu.inputs = []string{"   "}

	if _, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "x"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.gen.requests) != 1 {
		t.Errorf("Expected no regeneration, got %d generations", len(h.gen.requests))
	}
	if h.menu.selected != 2 {
		t.Errorf("Expected the menu to be shown again, got %d selections", h.menu.selected)
	}
}

func TestRun_GuessEmptySuggestionGoesToRevising(t *testing.T) {
	h := newHarness("", "docker ps")
	h.gen.errs = []error{generate.ErrGenerationFailed}
	h.menu.inputs = []string{"list containers"}
	h.menu.choices = []Choice{ChoiceCopy}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Suggest: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.menu.asked != 1 {
		t.Errorf("Expected the user to be asked for a revision first")
	}
	if !out.Copied || h.clip.text != "docker ps" {
		t.Errorf("Expected revised command to be copied, got %q", h.clip.text)
	}
	if len(h.rec.added) != 0 {
		t.Error("Copy must not persist")
	}
}

func TestRun_GenerateFailureEndsSession(t *testing.T) {
	h := newHarness("")
	h.gen.errs = []error{generate.ErrGenerationFailed}

	_, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "x"})
	if !errors.Is(err, generate.ErrGenerationFailed) {
		t.Errorf("Expected ErrGenerationFailed, got %v", err)
	}
	if h.menu.selected != 0 {
		t.Error("Menu must not be shown without a candidate")
	}
}

func TestRun_ExplainByMode(t *testing.T) {
	t.Run("Generate terminates", func(t *testing.T) {
		h := newHarness("du -sh .")
		h.menu.choices = []Choice{ChoiceExplain, ChoiceExecute}

		out, err := h.machine(Options{}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "size"})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if out.Explanation != "explains du -sh ." {
			t.Errorf("Unexpected explanation %q", out.Explanation)
		}
		if len(h.exec.ran) != 0 {
			t.Error("Expected session to end after explaining")
		}
	})

	t.Run("Guess returns to menu", func(t *testing.T) {
		h := newHarness("du -sh .")
		h.menu.choices = []Choice{ChoiceExplain, ChoiceExecute}

		out, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "size"})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !out.Executed || !out.Persisted() {
			t.Errorf("Expected execution after explain, got %+v", out)
		}
	})
}

func TestRun_Copy(t *testing.T) {
	h := newHarness("pwd")
	h.menu.choices = []Choice{ChoiceCopy}

	out, err := h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "where am i"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Copied || h.clip.text != "pwd" {
		t.Errorf("Expected pwd on clipboard, got %q", h.clip.text)
	}

	h = newHarness("pwd")
	h.clip.err = errors.New("no clipboard")
	h.menu.choices = []Choice{ChoiceCopy}
	out, _ = h.machine(Options{}).Run(context.Background(), ModeGuess, generate.Request{Intent: "where am i"})
	if out.Copied {
		t.Error("Expected copy failure to be reported")
	}
}

func TestRun_AutoExecute(t *testing.T) {
	h := newHarness("whoami")

	out, err := h.machine(Options{AutoExecute: true, ShowCommand: true}).Run(context.Background(), ModeGenerate, generate.Request{Intent: "me"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.menu.selected != 0 {
		t.Error("Expected no menu with auto execute")
	}
	if !out.Persisted() {
		t.Error("Expected auto executed command to be remembered")
	}
	if !strings.Contains(h.out.String(), "whoami") {
		t.Errorf("Expected command to be shown, got %q", h.out.String())
	}
}

func TestRun_InterruptDuringFirstGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarness("ls")
	h.gen.errs = []error{fmt.Errorf("stub: %w", context.Canceled)}

	out, err := h.machine(Options{}).Run(ctx, ModeGenerate, generate.Request{Intent: "x"})
	if err != nil {
		t.Fatalf("Expected interrupt to end the session without error, got %v", err)
	}
	if !out.Interrupted {
		t.Error("Expected interrupted outcome")
	}
	if h.menu.selected != 0 || len(h.exec.ran) != 0 || len(h.rec.added) != 0 {
		t.Error("Expected no menu, execution or record")
	}
}
