package file

import (
	"context"
	"fmt"
	"os"
)

// DeleteFile removes a file, or a directory when it is empty or Recursive
// is set.
func (t *Tools) DeleteFile(ctx context.Context, req DeleteFileRequest) (string, error) {
	abs, err := t.resolver.Abs(req.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &StatError{Path: abs, Cause: ErrFileMissing}
		}
		return "", &StatError{Path: abs, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if info.IsDir() {
		if req.Recursive {
			files, bytes, _ := t.fs.usage(abs)
			if err := os.RemoveAll(abs); err != nil {
				return "", &DeleteError{Path: abs, Cause: err}
			}
			return fmt.Sprintf("Deleted directory %s (%d files, %s)", t.resolver.Display(abs), files, formatSize(bytes)), nil
		}
		entries, err := os.ReadDir(abs)
		if err != nil {
			return "", &DeleteError{Path: abs, Cause: err}
		}
		if len(entries) > 0 {
			return "", &DeleteError{Path: abs, Cause: ErrDirNotEmpty}
		}
	}

	if err := os.Remove(abs); err != nil {
		return "", &DeleteError{Path: abs, Cause: err}
	}
	return fmt.Sprintf("Deleted %s (%s)", t.resolver.Display(abs), formatSize(info.Size())), nil
}

// PreviewDelete summarizes what a delete would remove.
func (t *Tools) PreviewDelete(_ context.Context, req DeleteFileRequest) (string, error) {
	abs, err := t.resolver.Abs(req.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("delete %s (does not exist)", abs), nil
		}
		return "", &StatError{Path: abs, Cause: err}
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, _ := os.Readlink(abs)
		return fmt.Sprintf("delete symlink %s -> %s", abs, target), nil
	case info.IsDir():
		files, bytes, err := t.fs.usage(abs)
		if err != nil {
			return fmt.Sprintf("delete directory %s (size unknown: %v)", abs, err), nil
		}
		if req.Recursive {
			return fmt.Sprintf("delete directory %s recursively (%d files, %s)", abs, files, formatSize(bytes)), nil
		}
		return fmt.Sprintf("delete directory %s (%d files, %s; fails unless empty)", abs, files, formatSize(bytes)), nil
	default:
		return fmt.Sprintf("delete file %s (%s)", abs, formatSize(info.Size())), nil
	}
}
