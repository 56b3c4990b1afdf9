package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Resolver turns tool paths into clean absolute paths. Relative paths are
// joined to the base directory and "~" expands to the home directory.
type Resolver struct {
	base string
}

// NewResolver creates a resolver for base. An empty base is the current
// directory.
func NewResolver(base string) (*Resolver, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := expandHome(base)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", base, err)
	}
	return &Resolver{base: abs}, nil
}

// Base returns the base directory.
func (r *Resolver) Base() string {
	return r.base
}

// Abs resolves path to a clean absolute path.
func (r *Resolver) Abs(path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Clean(filepath.Join(r.base, path)), nil
}

// Display returns path relative to the base when it lies below it, and the
// absolute path otherwise.
func (r *Resolver) Display(abs string) string {
	rel, err := filepath.Rel(r.base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return abs
	}
	return filepath.ToSlash(rel)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// osFS holds the filesystem primitives the tools rely on.
type osFS struct{}

// readRange reads up to limit bytes from offset. A zero limit reads to the
// end of the file.
func (osFS) readRange(path string, offset, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}
	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit)
	}
	return io.ReadAll(r)
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place. An existing file keeps its permissions.
func (osFS) writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".sysmate-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	renamed = true
	return nil
}

// usage returns the number of regular files and total bytes under path.
func (osFS) usage(path string) (files int, bytes int64, err error) {
	err = filepath.WalkDir(path, func(_ string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			files++
			bytes += info.Size()
		}
		return nil
	})
	return files, bytes, err
}

// binarySampleSize matches git's heuristic.
const binarySampleSize = 8000

// isBinary reports whether content looks binary: a NUL byte in the first
// 8000 bytes, unless the data starts with a UTF-16 or UTF-32 BOM.
func isBinary(content []byte) bool {
	if len(content) >= 2 &&
		((content[0] == 0xFF && content[1] == 0xFE) || (content[0] == 0xFE && content[1] == 0xFF)) {
		return false
	}
	if len(content) >= 4 && content[0] == 0x00 && content[1] == 0x00 && content[2] == 0xFE && content[3] == 0xFF {
		return false
	}
	for i := range min(len(content), binarySampleSize) {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
