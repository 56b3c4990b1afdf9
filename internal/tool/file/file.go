// Package file provides the filesystem tool server.
package file

import (
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/tool/adapter"
)

// ServerID identifies the filesystem tool server.
const ServerID = "fs"

// Options configures the filesystem tools.
type Options struct {
	// Root is the base for relative paths. Empty means the current directory.
	Root           string
	MaxFileSize    int64
	MaxListEntries int
}

// Tools implements the filesystem tools.
type Tools struct {
	resolver       *Resolver
	fs             osFS
	maxFileSize    int64
	maxListEntries int
}

// New creates the filesystem tools.
func New(opts Options) (*Tools, error) {
	r, err := NewResolver(opts.Root)
	if err != nil {
		return nil, err
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 5 * 1024 * 1024
	}
	if opts.MaxListEntries <= 0 {
		opts.MaxListEntries = 1000
	}
	return &Tools{
		resolver:       r,
		maxFileSize:    opts.MaxFileSize,
		maxListEntries: opts.MaxListEntries,
	}, nil
}

var pathParam = &tool.Schema{Type: tool.TypeString, Description: "File or directory path; relative paths resolve against the workspace root and ~ is the home directory"}

// Server returns the tool server exposing every filesystem tool.
func (t *Tools) Server() (*adapter.LocalServer, error) {
	return adapter.NewLocalServer(ServerID,
		adapter.New(tool.Spec{
			Name:        "read_file",
			Description: "Read a text file. Use offset and limit (bytes) to read part of a large file.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"path":   pathParam,
				"offset": {Type: tool.TypeInteger, Description: "Byte offset to start reading from"},
				"limit":  {Type: tool.TypeInteger, Description: "Maximum number of bytes to read"},
			}, "path"),
			Capability: tool.CapabilityFilesystem,
			Keywords:   []string{"cat", "view"},
		}, t.ReadFile),
		adapter.New(tool.Spec{
			Name:        "list_files",
			Description: "List the contents of a directory. Entries ignored by .gitignore are hidden unless include_ignored is true.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"path":            pathParam,
				"max_depth":       {Type: tool.TypeInteger, Description: "0 lists immediate children only, -1 is unlimited"},
				"include_ignored": {Type: tool.TypeBoolean, Description: "Include gitignored entries"},
			}),
			Capability: tool.CapabilityFilesystem,
			Keywords:   []string{"ls", "tree", "directory"},
		}, t.ListFiles),
		adapter.New(tool.Spec{
			Name:        "write_file",
			Description: "Create or overwrite a text file with the given content.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"path":    pathParam,
				"content": {Type: tool.TypeString, Description: "Full new content of the file"},
			}, "path", "content"),
			Destructive: true,
			Capability:  tool.CapabilityFilesystem,
			Keywords:    []string{"edit", "modify", "update"},
		}, t.WriteFile).WithPreview(t.PreviewWrite),
		adapter.New(tool.Spec{
			Name:        "delete_file",
			Description: "Delete a file, or a directory when recursive is true.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"path":      pathParam,
				"recursive": {Type: tool.TypeBoolean, Description: "Delete a directory and everything in it"},
			}, "path"),
			Destructive: true,
			Capability:  tool.CapabilityFilesystem,
			Keywords:    []string{"rm", "erase"},
		}, t.DeleteFile).WithPreview(t.PreviewDelete),
	)
}
