// Package prompt renders the instructions sent to the model. Rendering is
// pure: the same inputs always produce the same text.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/termax/internal/envinfo"
	"github.com/felixgeelhaar/termax/internal/extract"
	"github.com/felixgeelhaar/termax/internal/memory"
)

// Family selects wording tuned for a class of models.
type Family string

const (
	// FamilyChat suits hosted chat models that follow long instructions.
	FamilyChat Family = "chat"
	// FamilyCompact keeps the instruction short for small local models.
	FamilyCompact Family = "compact"
)

// FamilyFor returns the family used for a backend platform name.
func FamilyFor(platform string) Family {
	switch platform {
	case "ollama", "cli":
		return FamilyCompact
	default:
		return FamilyChat
	}
}

// ExplainInstruction asks the model to describe a command passed as user text.
const ExplainInstruction = "Help me describe this command:"

// Input is everything the command instruction is built from.
type Input struct {
	Snapshot  envinfo.Snapshot
	Neighbors []memory.Neighbor
}

// Command renders the instruction for turning an intent into a command. The
// intent itself travels separately as the user text.
func Command(family Family, in Input) string {
	var b strings.Builder

	b.WriteString("You are a shell expert. Convert the user's request into shell commands.\n\n")
	if family == FamilyCompact {
		b.WriteString("Reply with commands only. Combine multiple steps into one line.\n\n")
	} else {
		b.WriteString("Rules:\n")
		b.WriteString("1. Provide only shell commands, without any description.\n")
		b.WriteString("2. The output must be a valid command for the system described below.\n")
		b.WriteString("3. If several steps are required, combine them into a single line.\n")
		b.WriteString("4. Only reference files that exist in the listed directory.\n")
		b.WriteString("5. Only use programs that are likely installed on this system.\n\n")
	}

	writeSystem(&b, in.Snapshot)
	writePath(&b, in.Snapshot)

	if len(in.Neighbors) > 0 {
		b.WriteString("Similar commands accepted before:\n")
		for _, n := range in.Neighbors {
			fmt.Fprintf(&b, "\nUser Input: %s\n", n.Intent)
			fmt.Fprintf(&b, "Generated Commands: %s\n", n.Command)
			fmt.Fprintf(&b, "Distance Score: %.4f\n", n.Distance)
			fmt.Fprintf(&b, "Date: %s\n", n.CreatedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
	}

	writeDirective(&b)
	return b.String()
}

// Suggest renders the instruction for inferring the next command from the
// environment. The user's description travels as the user text.
func Suggest(family Family, snap envinfo.Snapshot, source envinfo.Source) string {
	var b strings.Builder

	b.WriteString("You are a shell expert. Infer the next command the user most likely wants to run, ")
	b.WriteString("based on their description and the environment below.\n\n")

	writeSystem(&b, snap)
	writePath(&b, snap)
	fmt.Fprintf(&b, "Current time: %s\n\n", snap.Time.UTC().Format(time.RFC3339))

	b.WriteString("Primary data source:\n")
	writeSource(&b, snap, source)
	b.WriteString("\n")

	if family != FamilyCompact {
		b.WriteString("Rules:\n")
		b.WriteString("1. Provide only shell commands, without any description.\n")
		b.WriteString("2. The output must be a valid command for the system described above.\n\n")
	}

	writeDirective(&b)
	return b.String()
}

// Explain returns the instruction for describing a command. It carries no
// environment or history.
func Explain(Family) string {
	return ExplainInstruction
}

func writeSystem(b *strings.Builder, s envinfo.Snapshot) {
	b.WriteString("System:\n")
	fmt.Fprintf(b, "1. OS: %s\n", s.Platform)
	fmt.Fprintf(b, "2. OS Version: %s\n", orNone(s.PlatformVersion))
	fmt.Fprintf(b, "3. Architecture: %s\n\n", s.Architecture)
}

func writePath(b *strings.Builder, s envinfo.Snapshot) {
	b.WriteString("Location:\n")
	fmt.Fprintf(b, "1. User: %s\n", orNone(s.User))
	fmt.Fprintf(b, "2. Current directory: %s\n", orNone(s.CurrentDirectory))
	fmt.Fprintf(b, "3. Files: %s\n", joinList(s.VisibleFiles))
	fmt.Fprintf(b, "4. Directories: %s\n", joinList(s.VisibleDirs))
	fmt.Fprintf(b, "5. Invisible files: %s\n", joinList(s.HiddenFiles))
	fmt.Fprintf(b, "6. Invisible directories: %s\n\n", joinList(s.HiddenDirs))
}

func writeSource(b *strings.Builder, s envinfo.Snapshot, source envinfo.Source) {
	switch {
	case source == envinfo.SourceGit && s.Git != nil:
		g := s.Git
		fmt.Fprintf(b, "1. Head: %s\n", orNone(g.Head))
		fmt.Fprintf(b, "2. Branch: %s\n", orNone(g.Branch))
		fmt.Fprintf(b, "3. Remotes: %s\n", joinList(g.Remotes))
		fmt.Fprintf(b, "4. Last commit author: %s\n", orNone(g.LastAuthor))
		if !g.LastCommitted.IsZero() {
			fmt.Fprintf(b, "5. Last commit date: %s\n", g.LastCommitted.UTC().Format(time.RFC3339))
		} else {
			b.WriteString("5. Last commit date: (none)\n")
		}
		fmt.Fprintf(b, "6. Last commit message: %s\n", orNone(g.LastMessage))
	case source == envinfo.SourceDocker && s.Docker != nil:
		fmt.Fprintf(b, "1. Containers: %s\n", joinList(s.Docker.Containers))
		fmt.Fprintf(b, "2. Images: %s\n", joinList(s.Docker.Images))
	default:
		b.WriteString("No primary data source available.\n")
	}
}

func writeDirective(b *strings.Builder) {
	b.WriteString("Output exactly one line in the format below, replacing <commands> with the actual commands:\n\n")
	fmt.Fprintf(b, "%s <commands>\n", extract.MultiMarker)
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
