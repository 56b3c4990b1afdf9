package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// WriteFile creates or replaces a file atomically, creating parent
// directories as needed.
func (t *Tools) WriteFile(ctx context.Context, req WriteFileRequest) (string, error) {
	abs, err := t.resolver.Abs(req.Path)
	if err != nil {
		return "", err
	}

	content := []byte(req.Content)
	if int64(len(content)) > t.maxFileSize {
		return "", &TooLargeError{Path: abs, Size: int64(len(content)), Limit: t.maxFileSize}
	}
	if isBinary(content) {
		return "", &WriteError{Path: abs, Cause: ErrBinaryFile}
	}

	existed := false
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return "", &WriteError{Path: abs, Cause: ErrIsDirectory}
		}
		existed = true
	} else if !os.IsNotExist(err) {
		return "", &StatError{Path: abs, Cause: err}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := t.fs.writeAtomic(abs, content); err != nil {
		return "", &WriteError{Path: abs, Cause: err}
	}

	verb := "Created"
	if existed {
		verb = "Updated"
	}
	return fmt.Sprintf("%s %s (%d bytes)", verb, t.resolver.Display(abs), len(content)), nil
}

// PreviewWrite renders the change a write would make as a line diff.
func (t *Tools) PreviewWrite(_ context.Context, req WriteFileRequest) (string, error) {
	abs, err := t.resolver.Abs(req.Path)
	if err != nil {
		return "", err
	}

	var old string
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		if info.Size() > t.maxFileSize {
			return fmt.Sprintf("overwrite %s (%s, too large to diff)", abs, formatSize(info.Size())), nil
		}
		data, err := t.fs.readRange(abs, 0, 0)
		if err != nil {
			return "", &ReadError{Path: abs, Cause: err}
		}
		if isBinary(data) {
			return fmt.Sprintf("overwrite binary file %s (%s)", abs, formatSize(info.Size())), nil
		}
		old = string(data)
	}

	header := "--- " + abs + "\n+++ " + abs + "\n"
	if old == "" {
		header = "--- /dev/null\n+++ " + abs + "\n"
	}
	return header + lineDiff(old, req.Content), nil
}

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 3

// lineDiff renders a line-oriented diff of a and b with "+", "-" and " "
// prefixes, eliding long unchanged runs.
func lineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out strings.Builder
	for i, d := range diffs {
		text := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			writePrefixed(&out, "+", text)
		case diffmatchpatch.DiffDelete:
			writePrefixed(&out, "-", text)
		case diffmatchpatch.DiffEqual:
			first, last := i == 0, i == len(diffs)-1
			switch {
			case len(diffs) == 1:
				out.WriteString("(no changes)\n")
			case first && len(text) > diffContext:
				out.WriteString("@@\n")
				writePrefixed(&out, " ", text[len(text)-diffContext:])
			case last && len(text) > diffContext:
				writePrefixed(&out, " ", text[:diffContext])
			case !first && !last && len(text) > 2*diffContext:
				writePrefixed(&out, " ", text[:diffContext])
				out.WriteString("@@\n")
				writePrefixed(&out, " ", text[len(text)-diffContext:])
			default:
				writePrefixed(&out, " ", text)
			}
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

func splitDiffLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func writePrefixed(b *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		b.WriteString(prefix)
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
