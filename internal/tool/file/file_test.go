package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/tool"
)

func newTools(t *testing.T, opts Options) (*Tools, string) {
	t.Helper()
	root := t.TempDir()
	if opts.Root == "" {
		opts.Root = root
	}
	tools, err := New(opts)
	require.NoError(t, err)
	return tools, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolver(t *testing.T) {
	r, err := NewResolver("/work")
	require.NoError(t, err)

	abs, err := r.Abs("sub/../a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/work/a.txt", abs)

	abs, err = r.Abs("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", abs)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	abs, err = r.Abs("~/notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), abs)

	_, err = r.Abs("")
	assert.ErrorIs(t, err, ErrPathRequired)

	assert.Equal(t, "a/b", r.Display("/work/a/b"))
	assert.Equal(t, "/etc/hosts", r.Display("/etc/hosts"))
}

func TestReadFile(t *testing.T) {
	tools, root := newTools(t, Options{MaxFileSize: 64})
	writeFile(t, filepath.Join(root, "hello.txt"), "hello world")
	writeFile(t, filepath.Join(root, "big.txt"), strings.Repeat("x", 100))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin"), []byte{0x7f, 'E', 0x00, 0x01}, 0o644))

	t.Run("whole file", func(t *testing.T) {
		got, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "hello.txt"})
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
	})

	t.Run("range", func(t *testing.T) {
		got, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "hello.txt", Offset: 6, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, "wor", got)
	})

	t.Run("range of large file", func(t *testing.T) {
		got, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "big.txt", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, got, 10)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "big.txt"})
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("binary", func(t *testing.T) {
		_, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "bin"})
		assert.ErrorIs(t, err, ErrBinaryFile)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "nope"})
		assert.ErrorIs(t, err, ErrFileMissing)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := tools.ReadFile(context.Background(), ReadFileRequest{Path: "."})
		assert.ErrorIs(t, err, ErrIsDirectory)
	})
}

func TestListFiles(t *testing.T) {
	tools, root := newTools(t, Options{})
	writeFile(t, filepath.Join(root, "a.txt"), "abc")
	writeFile(t, filepath.Join(root, "sub", "b.go"), "package b")
	writeFile(t, filepath.Join(root, "sub", "deep", "c.md"), "# c")

	got, err := tools.ListFiles(context.Background(), ListFilesRequest{Path: root})
	require.NoError(t, err)
	assert.Contains(t, got, "(2 entries)")
	assert.Contains(t, got, "a.txt  3 B")
	assert.Contains(t, got, "sub/")
	assert.NotContains(t, got, "b.go")

	got, err = tools.ListFiles(context.Background(), ListFilesRequest{Path: ".", MaxDepth: -1})
	require.NoError(t, err)
	assert.Contains(t, got, "sub/b.go")
	assert.Contains(t, got, "sub/deep/c.md")
}

func TestListFiles_RespectsGitignore(t *testing.T) {
	tools, root := newTools(t, Options{})
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\nbuild/\n")
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, "debug.log"), "noise")
	writeFile(t, filepath.Join(root, "build", "out"), "bin")
	writeFile(t, filepath.Join(root, "pkg", ".gitignore"), "secret.txt\n")
	writeFile(t, filepath.Join(root, "pkg", "secret.txt"), "s")
	writeFile(t, filepath.Join(root, "pkg", "lib.go"), "package pkg")

	got, err := tools.ListFiles(context.Background(), ListFilesRequest{Path: ".", MaxDepth: -1})
	require.NoError(t, err)
	assert.Contains(t, got, "main.go")
	assert.Contains(t, got, "pkg/lib.go")
	assert.NotContains(t, got, "debug.log")
	assert.NotContains(t, got, "build/")
	assert.NotContains(t, got, "secret.txt")
	assert.NotContains(t, got, ".git/")

	// listing a subdirectory still applies the repository's rules
	writeFile(t, filepath.Join(root, "pkg", "trace.log"), "noise")
	got, err = tools.ListFiles(context.Background(), ListFilesRequest{Path: "pkg"})
	require.NoError(t, err)
	assert.Contains(t, got, "lib.go")
	assert.NotContains(t, got, "trace.log")

	got, err = tools.ListFiles(context.Background(), ListFilesRequest{Path: ".", IncludeIgnored: true})
	require.NoError(t, err)
	assert.Contains(t, got, "debug.log")
}

func TestListFiles_Capped(t *testing.T) {
	tools, root := newTools(t, Options{MaxListEntries: 2})
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, filepath.Join(root, name), name)
	}

	got, err := tools.ListFiles(context.Background(), ListFilesRequest{Path: "."})
	require.NoError(t, err)
	assert.Contains(t, got, "[listing capped at 2 entries]")
	assert.NotContains(t, got, "\nc  ")
}

func TestListFiles_NotADirectory(t *testing.T) {
	tools, root := newTools(t, Options{})
	writeFile(t, filepath.Join(root, "a"), "a")

	_, err := tools.ListFiles(context.Background(), ListFilesRequest{Path: "a"})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestWriteFile(t *testing.T) {
	tools, root := newTools(t, Options{MaxFileSize: 32})
	path := filepath.Join(root, "nested", "out.txt")

	got, err := tools.WriteFile(context.Background(), WriteFileRequest{Path: "nested/out.txt", Content: "one\n"})
	require.NoError(t, err)
	assert.Equal(t, "Created nested/out.txt (4 bytes)", got)

	require.NoError(t, os.Chmod(path, 0o600))
	got, err = tools.WriteFile(context.Background(), WriteFileRequest{Path: path, Content: "two\n"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Updated"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = tools.WriteFile(context.Background(), WriteFileRequest{Path: "big", Content: strings.Repeat("x", 33)})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = tools.WriteFile(context.Background(), WriteFileRequest{Path: "nested", Content: "x"})
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestPreviewWrite(t *testing.T) {
	tools, root := newTools(t, Options{})
	path := filepath.Join(root, "conf")
	writeFile(t, path, "a\nb\nc\n")

	preview, err := tools.PreviewWrite(context.Background(), WriteFileRequest{Path: "conf", Content: "a\nB\nc\n"})
	require.NoError(t, err)
	assert.Contains(t, preview, "--- "+path)
	assert.Contains(t, preview, "-b")
	assert.Contains(t, preview, "+B")
	assert.Contains(t, preview, " a")

	preview, err = tools.PreviewWrite(context.Background(), WriteFileRequest{Path: "new", Content: "x\n"})
	require.NoError(t, err)
	assert.Contains(t, preview, "--- /dev/null")
	assert.Contains(t, preview, "+x")

	// preview has no side effects
	_, err = os.Stat(filepath.Join(root, "new"))
	assert.True(t, os.IsNotExist(err))
}

func TestLineDiff_ElidesUnchangedRuns(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, strings.Repeat("l", i+1))
	}
	old := strings.Join(lines, "\n") + "\n"
	lines[10] = "changed"
	updated := strings.Join(lines, "\n") + "\n"

	diff := lineDiff(old, updated)

	assert.Contains(t, diff, "+changed")
	assert.Contains(t, diff, "@@")
	assert.NotContains(t, diff, " l\n")
	assert.Equal(t, "(no changes)", lineDiff(old, old))
}

func TestDeleteFile(t *testing.T) {
	tools, root := newTools(t, Options{})
	writeFile(t, filepath.Join(root, "x"), "12345")
	writeFile(t, filepath.Join(root, "dir", "a"), "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	preview, err := tools.PreviewDelete(context.Background(), DeleteFileRequest{Path: "x"})
	require.NoError(t, err)
	assert.Contains(t, preview, "5 B")
	_, err = os.Stat(filepath.Join(root, "x"))
	require.NoError(t, err, "preview must not delete")

	got, err := tools.DeleteFile(context.Background(), DeleteFileRequest{Path: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Deleted x (5 B)", got)
	_, err = os.Stat(filepath.Join(root, "x"))
	assert.True(t, os.IsNotExist(err))

	_, err = tools.DeleteFile(context.Background(), DeleteFileRequest{Path: "dir"})
	assert.ErrorIs(t, err, ErrDirNotEmpty)

	preview, err = tools.PreviewDelete(context.Background(), DeleteFileRequest{Path: "dir", Recursive: true})
	require.NoError(t, err)
	assert.Contains(t, preview, "recursively (1 files")

	_, err = tools.DeleteFile(context.Background(), DeleteFileRequest{Path: "dir", Recursive: true})
	require.NoError(t, err)
	_, err = tools.DeleteFile(context.Background(), DeleteFileRequest{Path: "empty"})
	require.NoError(t, err)

	_, err = tools.DeleteFile(context.Background(), DeleteFileRequest{Path: "x"})
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestServer(t *testing.T) {
	tools, root := newTools(t, Options{})
	writeFile(t, filepath.Join(root, "a.txt"), "content")

	srv, err := tools.Server()
	require.NoError(t, err)

	reg := tool.NewRegistry()
	d := tool.NewDispatcher(reg, nil)
	require.NoError(t, d.AddServer(srv))

	names := make([]string, 0, reg.Len())
	for _, s := range reg.List() {
		names = append(names, s.Name)
		assert.Equal(t, tool.CapabilityFilesystem, s.Capability)
		assert.Equal(t, ServerID, s.Server)
	}
	assert.Equal(t, []string{"read_file", "list_files", "write_file", "delete_file"}, names)

	spec, err := reg.Resolve("delete_file")
	require.NoError(t, err)
	assert.True(t, spec.Destructive)

	readSpec, err := reg.Resolve("read_file")
	require.NoError(t, err)
	args, err := reg.ParseArguments("read_file", []byte(`{"path":"a.txt","limit":4}`))
	require.NoError(t, err)
	res := d.Execute(context.Background(), readSpec, args)
	assert.Equal(t, tool.OK("cont"), res)

	_, err = reg.ParseArguments("read_file", []byte(`{"offset":1}`))
	var invalid *tool.InvalidArgumentsError
	assert.ErrorAs(t, err, &invalid)

	preview := d.Preview(context.Background(), spec, map[string]any{"path": "a.txt"})
	assert.Contains(t, preview, "delete file")
}
