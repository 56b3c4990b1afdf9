package file

import (
	"context"
	"os"
)

// ReadFile returns the text content of a file, optionally a byte range.
// Binary files and files over the size limit are refused.
func (t *Tools) ReadFile(ctx context.Context, req ReadFileRequest) (string, error) {
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
	if info.IsDir() {
		return "", &ReadError{Path: abs, Cause: ErrIsDirectory}
	}

	// A bounded range of a large file is fine; the whole file is not.
	readSize := info.Size() - req.Offset
	if req.Limit > 0 && req.Limit < readSize {
		readSize = req.Limit
	}
	if readSize > t.maxFileSize {
		return "", &TooLargeError{Path: abs, Size: info.Size(), Limit: t.maxFileSize}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := t.fs.readRange(abs, req.Offset, req.Limit)
	if err != nil {
		return "", &ReadError{Path: abs, Cause: err}
	}
	if isBinary(content) {
		return "", &ReadError{Path: abs, Cause: ErrBinaryFile}
	}
	return string(content), nil
}
