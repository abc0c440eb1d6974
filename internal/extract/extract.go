// Package extract pulls a runnable command out of free-form model output.
package extract

import (
	"regexp"
	"strings"
)

// Markers introduce the command line in a model reply. Prompts must ask for
// exactly these prefixes.
const (
	SingleMarker = "Command:"
	MultiMarker  = "Commands:"
)

var fenceRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]+)?\\n(.*?)```")

// Command returns the command found in raw, or "" when none is present.
// A marker line wins over fenced code blocks. The single-command marker is
// looked for first, then the multi-command one.
func Command(raw string) string {
	if cmd, ok := markerLine(raw, SingleMarker); ok {
		return cmd
	}
	if cmd, ok := markerLine(raw, MultiMarker); ok {
		return cmd
	}

	matches := fenceRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	return strings.Join(blocks, "\n\n")
}

// markerLine returns the rest of the first line containing marker. The
// marker may appear mid-line, as in "Sure. Commands: ls -la".
func markerLine(raw, marker string) (string, bool) {
	for _, line := range strings.Split(raw, "\n") {
		if i := strings.Index(line, marker); i >= 0 {
			rest := strings.TrimSpace(strings.TrimLeft(line[i+len(marker):], "*"))
			return strings.Trim(rest, "`"), true
		}
	}
	return "", false
}
