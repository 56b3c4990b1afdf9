package file

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreMatcher applies .gitignore rules found between a repository root
// and the directories being listed.
type ignoreMatcher struct {
	// root is the directory paths are matched relative to: the enclosing
	// repository root, or the listing root outside a repository.
	root     string
	patterns []gitignore.Pattern
}

// newIgnoreMatcher loads the .gitignore files that govern dir: those of
// the enclosing repository root and every directory down to dir.
func newIgnoreMatcher(dir string) *ignoreMatcher {
	root := findRepoRoot(dir)
	if root == "" {
		root = dir
	}
	m := &ignoreMatcher{root: root}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return m
	}
	current := root
	m.patterns = append(m.patterns, readIgnoreFile(current, nil)...)
	for _, seg := range splitPath(rel) {
		current = filepath.Join(current, seg)
		m.patterns = append(m.patterns, readIgnoreFile(current, m.domain(current))...)
	}
	return m
}

// descend returns a matcher that also applies dir's own .gitignore.
func (m *ignoreMatcher) descend(dir string) *ignoreMatcher {
	extra := readIgnoreFile(dir, m.domain(dir))
	if len(extra) == 0 {
		return m
	}
	patterns := make([]gitignore.Pattern, 0, len(m.patterns)+len(extra))
	patterns = append(patterns, m.patterns...)
	patterns = append(patterns, extra...)
	return &ignoreMatcher{root: m.root, patterns: patterns}
}

// ignored reports whether abs is excluded.
func (m *ignoreMatcher) ignored(abs string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}
	segs := m.domain(abs)
	if len(segs) == 0 {
		return false
	}
	return gitignore.NewMatcher(m.patterns).Match(segs, isDir)
}

func (m *ignoreMatcher) domain(abs string) []string {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil {
		return nil
	}
	return splitPath(rel)
}

func readIgnoreFile(dir string, domain []string) []gitignore.Pattern {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}

// findRepoRoot walks up from dir to the nearest directory holding .git.
func findRepoRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// splitPath splits a path into segments for gitignore matching.
// It normalizes path separators and filters out empty and "." segments.
func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
