// Package git provides read-only repository tools backed by go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/tool/adapter"
)

// ServerID identifies the git tool server.
const ServerID = "git"

const (
	defaultLogLimit = 10
	maxLogLimit     = 100
)

var (
	ErrNotRepository = errors.New("not a git repository")
	ErrInvalidLimit  = errors.New("limit must be between 0 and 100")
)

type StatusRequest struct {
	Path string `json:"path,omitempty"`
}

type LogRequest struct {
	Path  string `json:"path,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (r *LogRequest) Validate() error {
	if r.Limit < 0 || r.Limit > maxLogLimit {
		return ErrInvalidLimit
	}
	return nil
}

// Tools implements the git tools.
type Tools struct {
	dir string
}

// New creates the git tools. dir is the default repository path; empty
// means the current directory.
func New(dir string) *Tools {
	if dir == "" {
		dir = "."
	}
	return &Tools{dir: dir}
}

func (t *Tools) open(path string) (*gogit.Repository, error) {
	if path == "" {
		path = t.dir
	}
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// headLine describes HEAD. An unborn branch has no commits yet.
func headLine(repo *gogit.Repository) (string, *plumbing.Reference, error) {
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "no commits yet", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	short := head.Hash().String()[:7]
	if head.Name().IsBranch() {
		return fmt.Sprintf("on branch %s (%s)", head.Name().Short(), short), head, nil
	}
	return fmt.Sprintf("HEAD detached at %s", short), head, nil
}

// Status reports the branch and the staged, unstaged and untracked files.
func (t *Tools) Status(ctx context.Context, req StatusRequest) (string, error) {
	repo, err := t.open(req.Path)
	if err != nil {
		return "", err
	}
	line, _, err := headLine(repo)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to compute status: %w", err)
	}

	var b strings.Builder
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString("repository: " + wt.Filesystem.Root() + "\n")
	if status.IsClean() {
		b.WriteString("working tree clean")
		return b.String(), nil
	}

	var staged, unstaged, untracked []string
	for path, fs := range status {
		switch {
		case fs.Worktree == gogit.Untracked:
			untracked = append(untracked, path)
			continue
		case fs.Staging != gogit.Unmodified:
			staged = append(staged, fmt.Sprintf("%s %s", describe(fs.Staging), path))
		}
		if fs.Worktree != gogit.Unmodified {
			unstaged = append(unstaged, fmt.Sprintf("%s %s", describe(fs.Worktree), path))
		}
	}
	writeSection(&b, "staged", staged)
	writeSection(&b, "not staged", unstaged)
	writeSection(&b, "untracked", untracked)
	return strings.TrimRight(b.String(), "\n"), nil
}

func describe(c gogit.StatusCode) string {
	switch c {
	case gogit.Added:
		return "added:"
	case gogit.Modified:
		return "modified:"
	case gogit.Deleted:
		return "deleted:"
	case gogit.Renamed:
		return "renamed:"
	case gogit.Copied:
		return "copied:"
	case gogit.UpdatedButUnmerged:
		return "unmerged:"
	default:
		return string(c) + ":"
	}
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	sort.Strings(lines)
	fmt.Fprintf(b, "%s (%d):\n", title, len(lines))
	for _, l := range lines {
		b.WriteString("  " + l + "\n")
	}
}

// Log lists the most recent commits reachable from HEAD.
func (t *Tools) Log(ctx context.Context, req LogRequest) (string, error) {
	repo, err := t.open(req.Path)
	if err != nil {
		return "", err
	}
	line, head, err := headLine(repo)
	if err != nil {
		return "", err
	}
	if head == nil {
		return line, nil
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultLogLimit
	}

	iter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var b strings.Builder
	b.WriteString(line + "\n")
	n := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n >= limit {
			return storer.ErrStop
		}
		n++
		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		fmt.Fprintf(&b, "%s %s %s: %s\n",
			c.Hash.String()[:7], c.Author.When.Format("2006-01-02"), c.Author.Name, subject)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Server returns the tool server exposing the git tools.
func (t *Tools) Server() (*adapter.LocalServer, error) {
	pathParam := &tool.Schema{Type: tool.TypeString, Description: "Path inside the repository; defaults to the workspace root"}
	return adapter.NewLocalServer(ServerID,
		adapter.New(tool.Spec{
			Name:        "git_status",
			Description: "Show the current branch and the staged, unstaged and untracked files of a git repository.",
			Parameters:  tool.Object(map[string]*tool.Schema{"path": pathParam}),
			Capability:  tool.CapabilityGit,
			Keywords:    []string{"changes", "changed", "modified", "untracked"},
		}, t.Status),
		adapter.New(tool.Spec{
			Name:        "git_log",
			Description: "List recent commits of a git repository, newest first.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"path":  pathParam,
				"limit": {Type: tool.TypeInteger, Description: "Number of commits to show (default 10, max 100)"},
			}),
			Capability: tool.CapabilityGit,
			Keywords:   []string{"recent", "author", "authors"},
		}, t.Log),
	)
}
