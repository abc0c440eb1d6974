package envinfo

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

// GitSummary describes the repository containing the listed directory.
type GitSummary struct {
	Head          string
	Branch        string
	Remotes       []string
	LastAuthor    string
	LastCommitted time.Time
	LastMessage   string
}

func gitSummary(dir string) *GitSummary {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}

	summary := &GitSummary{}
	if remotes, err := repo.Remotes(); err == nil {
		for _, r := range remotes {
			cfg := r.Config()
			summary.Remotes = append(summary.Remotes, cfg.Name+" "+strings.Join(cfg.URLs, ","))
		}
	}

	head, err := repo.Head()
	if err != nil {
		// Fresh repository without commits.
		return summary
	}
	summary.Head = head.Hash().String()
	if head.Name().IsBranch() {
		summary.Branch = head.Name().Short()
	}

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		summary.LastAuthor = commit.Author.Name
		summary.LastCommitted = commit.Author.When
		summary.LastMessage = strings.TrimSpace(commit.Message)
	}
	return summary
}
