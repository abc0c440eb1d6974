package extract

import "testing"

func TestCommand(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"single marker", "Command: ls -la", "ls -la"},
		{"multi marker", "Commands: ls -la", "ls -la"},
		{"single beats multi", "Commands: b\nCommand: a", "a"},
		{"marker after prose", "Sure, here you go.\nCommand:   df -h  \nThat shows usage.", "df -h"},
		{"markdown bold marker", "**Command:** `git status`", "git status"},
		{"marker beats fence", "```bash\necho fenced\n```\nCommand: echo marked", "echo marked"},
		{"single fence", "```bash\nls -la\n```", "ls -la"},
		{"fence without language", "```\npwd\n```", "pwd"},
		{"multiple fences", "```sh\nmkdir x\n```\ntext\n```sh\ncd x\n```", "mkdir x\n\ncd x"},
		{"nothing", "I cannot help with that.", ""},
		{"empty", "", ""},
		{"marker with empty remainder", "Command:", ""},
		{"marker mid-line", "Sure. Commands: ls -la", "ls -la"},
		{"single mid-line beats multi", "Commands: b\nOk, Command: a", "a"},
		{"backticked remainder", "Command: `uname -a`", "uname -a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Command(tt.raw); got != tt.want {
				t.Errorf("Command(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCommand_Pure(t *testing.T) {
	raw := "noise\nCommands: find . -name '*.go'\n```\nignored\n```"
	first := Command(raw)
	for i := 0; i < 3; i++ {
		if got := Command(raw); got != first {
			t.Fatalf("extraction not stable: %q vs %q", got, first)
		}
	}
}
