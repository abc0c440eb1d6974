// Package envinfo collects a snapshot of the user's environment for prompts.
// Collection never fails: anything that cannot be read is left empty.
package envinfo

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Source names optional data that is expensive or noisy to collect.
type Source string

const (
	SourceGit    Source = "git"
	SourceDocker Source = "docker"
)

// Snapshot is the environment as seen at one instant.
type Snapshot struct {
	Platform         string
	PlatformVersion  string
	Architecture     string
	User             string
	CurrentDirectory string
	VisibleFiles     []string
	VisibleDirs      []string
	HiddenFiles      []string
	HiddenDirs       []string
	Git              *GitSummary
	Docker           *DockerSummary
	Time             time.Time
}

// Options configures a Provider.
type Options struct {
	// Dir is listed instead of the working directory when set.
	Dir string
	// Ignore holds doublestar patterns matched against entry names.
	Ignore []string
	// MaxEntries caps each listing. Zero means DefaultMaxEntries.
	MaxEntries int
}

const DefaultMaxEntries = 200

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider produces Snapshots.
type Provider struct {
	opts Options
	run  commandRunner
	now  func() time.Time
}

func New(opts Options) *Provider {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	return &Provider{
		opts: opts,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		now: time.Now,
	}
}

// Snapshot reads the environment once. Git and docker summaries are only
// gathered when requested through sources.
func (p *Provider) Snapshot(ctx context.Context, sources ...Source) Snapshot {
	snap := Snapshot{
		Platform:        runtime.GOOS,
		PlatformVersion: p.platformVersion(ctx),
		Architecture:    runtime.GOARCH,
		Time:            p.now(),
	}

	if u, err := user.Current(); err == nil {
		snap.User = u.Username
	} else {
		snap.User = os.Getenv("USER")
	}

	dir := p.opts.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	snap.CurrentDirectory = dir
	p.list(dir, &snap)

	for _, src := range sources {
		switch src {
		case SourceGit:
			snap.Git = gitSummary(dir)
		case SourceDocker:
			snap.Docker = p.dockerSummary(ctx)
		}
	}
	return snap
}

func (p *Provider) list(dir string, snap *Snapshot) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		name := e.Name()
		if p.ignored(name) {
			continue
		}
		hidden := strings.HasPrefix(name, ".")
		switch {
		case e.IsDir() && hidden:
			snap.HiddenDirs = appendCapped(snap.HiddenDirs, name, p.opts.MaxEntries)
		case e.IsDir():
			snap.VisibleDirs = appendCapped(snap.VisibleDirs, name, p.opts.MaxEntries)
		case hidden:
			snap.HiddenFiles = appendCapped(snap.HiddenFiles, name, p.opts.MaxEntries)
		default:
			snap.VisibleFiles = appendCapped(snap.VisibleFiles, name, p.opts.MaxEntries)
		}
	}

	sort.Strings(snap.VisibleFiles)
	sort.Strings(snap.VisibleDirs)
	sort.Strings(snap.HiddenFiles)
	sort.Strings(snap.HiddenDirs)
}

func (p *Provider) ignored(name string) bool {
	for _, pattern := range p.opts.Ignore {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func appendCapped(list []string, name string, max int) []string {
	if len(list) >= max {
		return list
	}
	return append(list, name)
}

func (p *Provider) platformVersion(ctx context.Context) string {
	switch runtime.GOOS {
	case "linux":
		if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(b))
		}
	case "darwin":
		if out, err := p.run(ctx, "sw_vers", "-productVersion"); err == nil {
			return strings.TrimSpace(string(out))
		}
	case "windows":
		if out, err := p.run(ctx, "cmd", "/c", "ver"); err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	return ""
}
