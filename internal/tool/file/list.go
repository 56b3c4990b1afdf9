package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListFiles lists a directory, depth first in name order. MaxDepth 0
// lists only immediate children; a negative depth is unlimited. Entries
// excluded by .gitignore are skipped unless IncludeIgnored is set, and
// .git directories are never listed.
func (t *Tools) ListFiles(ctx context.Context, req ListFilesRequest) (string, error) {
	abs, err := t.resolver.Abs(req.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &StatError{Path: abs, Cause: ErrFileMissing}
		}
		return "", &StatError{Path: abs, Cause: err}
	}
	if !info.IsDir() {
		return "", &StatError{Path: abs, Cause: ErrNotDirectory}
	}

	var matcher *ignoreMatcher
	if !req.IncludeIgnored {
		matcher = newIgnoreMatcher(abs)
	}

	w := &walker{
		root:     abs,
		maxDepth: req.MaxDepth,
		max:      t.maxListEntries,
		visited:  make(map[string]bool),
	}
	if err := w.walk(ctx, abs, 0, matcher); err != nil {
		return "", err
	}
	return formatListing(t.resolver.Display(abs), w.entries, w.capped, t.maxListEntries), nil
}

type walker struct {
	root     string
	maxDepth int
	max      int
	visited  map[string]bool
	entries  []Entry
	capped   bool
}

func (w *walker) walk(ctx context.Context, dir string, depth int, matcher *ignoreMatcher) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// symlink loops
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if w.visited[canonical] {
		return nil
	}
	w.visited[canonical] = true

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return &ReadError{Path: dir, Cause: err}
	}

	for _, de := range dirEntries {
		if len(w.entries) >= w.max {
			w.capped = true
			return nil
		}
		if de.Name() == ".git" && de.IsDir() {
			continue
		}
		path := filepath.Join(dir, de.Name())
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			if target, err := os.Stat(path); err == nil {
				isDir = target.IsDir()
			}
		}
		if matcher != nil && matcher.ignored(path, isDir) {
			continue
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return fmt.Errorf("failed to calculate relative path for %s: %w", path, err)
		}
		entry := Entry{RelativePath: filepath.ToSlash(rel), IsDir: isDir}
		if !isDir {
			if info, err := de.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		w.entries = append(w.entries, entry)

		if isDir && (w.maxDepth < 0 || depth < w.maxDepth) {
			next := matcher
			if matcher != nil {
				next = matcher.descend(path)
			}
			if err := w.walk(ctx, path, depth+1, next); err != nil {
				return err
			}
			if w.capped {
				return nil
			}
		}
	}
	return nil
}

func formatListing(dir string, entries []Entry, capped bool, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d entries)\n", dir, len(entries))
	for _, e := range entries {
		if e.IsDir {
			b.WriteString(e.RelativePath + "/\n")
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", e.RelativePath, formatSize(e.Size))
	}
	if capped {
		fmt.Fprintf(&b, "[listing capped at %d entries]\n", max)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
