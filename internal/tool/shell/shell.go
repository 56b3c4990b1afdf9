// Package shell provides the command execution tool server.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/tool/adapter"
)

// ServerID identifies the shell tool server.
const ServerID = "shell"

// RunCommandRequest is the argument set of run_command.
type RunCommandRequest struct {
	Command        string            `json:"command"`
	WorkingDir     string            `json:"working_dir,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

func (r *RunCommandRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return ErrCommandRequired
	}
	if r.TimeoutSeconds < 0 {
		return ErrNegativeTimeout
	}
	return nil
}

// Options configures the shell tool.
type Options struct {
	// Shell runs commands as: Shell -c command. Default /bin/sh.
	Shell string
	// Dir is the default working directory. Empty means the current one.
	Dir            string
	DefaultTimeout time.Duration
	MaxOutputSize  int64
}

// Tool runs shell commands on the local machine.
// It does not enforce policy; callers gate execution.
type Tool struct {
	shell          string
	dir            string
	defaultTimeout time.Duration
	maxOutput      int
}

// New creates the shell tool.
func New(opts Options) *Tool {
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 60 * time.Second
	}
	if opts.MaxOutputSize <= 0 {
		opts.MaxOutputSize = 1024 * 1024
	}
	return &Tool{
		shell:          opts.Shell,
		dir:            opts.Dir,
		defaultTimeout: opts.DefaultTimeout,
		maxOutput:      int(opts.MaxOutputSize),
	}
}

func (t *Tool) workingDir(requested string) (string, error) {
	dir := requested
	if dir == "" {
		dir = t.dir
	}
	if dir == "" {
		return os.Getwd()
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, dir[1:])
	}
	if !filepath.IsAbs(dir) && t.dir != "" {
		dir = filepath.Join(t.dir, dir)
	}
	return filepath.Abs(dir)
}

func (t *Tool) timeout(req RunCommandRequest) time.Duration {
	if req.TimeoutSeconds > 0 {
		return time.Duration(req.TimeoutSeconds) * time.Second
	}
	return t.defaultTimeout
}

// Run executes the command. A non-zero exit status is reported in the
// output, not as an error; timeouts and failures to start are errors.
func (t *Tool) Run(ctx context.Context, req RunCommandRequest) (string, error) {
	dir, err := t.workingDir(req.WorkingDir)
	if err != nil {
		return "", fmt.Errorf("invalid working directory: %w", err)
	}

	env := os.Environ()
	for k, v := range req.Env {
		env = append(env, k+"="+v)
	}

	timeout := t.timeout(req)
	res, err := runWithTimeout(ctx, []string{t.shell, "-c", req.Command}, dir, env, timeout, t.maxOutput)
	if err != nil {
		switch {
		case errors.Is(err, errTimeout):
			return "", &TimeoutError{Command: req.Command, Duration: timeout, Output: formatOutput(res)}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		case res == nil:
			return "", &StartError{Command: req.Command, Cause: err}
		default:
			return "", err
		}
	}
	return fmt.Sprintf("exit code: %d\n%s", res.ExitCode, formatOutput(res)), nil
}

// Preview shows the exact command line and where it will run.
func (t *Tool) Preview(_ context.Context, req RunCommandRequest) (string, error) {
	dir, err := t.workingDir(req.WorkingDir)
	if err != nil {
		dir = req.WorkingDir
	}
	var b strings.Builder
	fmt.Fprintf(&b, "$ %s\n", req.Command)
	fmt.Fprintf(&b, "in %s (shell %s, timeout %v)", dir, t.shell, t.timeout(req))
	if len(req.Env) > 0 {
		keys := make([]string, 0, len(req.Env))
		for k := range req.Env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		fmt.Fprintf(&b, "\nwith env: %s", strings.Join(keys, ", "))
	}
	return b.String(), nil
}

func formatOutput(res *result) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	if res.Stdout != "" {
		b.WriteString("--- stdout ---\n")
		b.WriteString(strings.TrimRight(res.Stdout, "\n"))
		b.WriteString("\n")
	}
	if res.Stderr != "" {
		b.WriteString("--- stderr ---\n")
		b.WriteString(strings.TrimRight(res.Stderr, "\n"))
		b.WriteString("\n")
	}
	if res.Stdout == "" && res.Stderr == "" {
		b.WriteString("(no output)\n")
	}
	if res.Truncated {
		b.WriteString("[output truncated]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Server returns the tool server exposing run_command.
func (t *Tool) Server() (*adapter.LocalServer, error) {
	return adapter.NewLocalServer(ServerID,
		adapter.New(tool.Spec{
			Name:        "run_command",
			Description: "Run a shell command on this machine and return its exit code, stdout and stderr.",
			Parameters: tool.Object(map[string]*tool.Schema{
				"command":         {Type: tool.TypeString, Description: "Command line passed to the shell"},
				"working_dir":     {Type: tool.TypeString, Description: "Directory to run in"},
				"timeout_seconds": {Type: tool.TypeInteger, Description: "Kill the command after this many seconds"},
				"env": {
					Type:        tool.TypeObject,
					Description: "Extra environment variables",
				},
			}, "command"),
			Destructive: true,
			Capability:  tool.CapabilityShell,
			Keywords:    []string{"df", "du", "ps", "top", "grep", "find", "ping", "uname"},
		}, t.Run).WithPreview(t.Preview),
	)
}
