package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"
)

// gracePeriod is how long a timed out command has to exit after SIGINT
// before it is killed.
const gracePeriod = 2 * time.Second

// binarySampleSize matches git's heuristic.
const binarySampleSize = 8000

var errTimeout = errors.New("command timeout")

// result is the outcome of a command execution.
type result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// runWithTimeout executes argv and collects its output. Cancelling ctx
// kills the process; exceeding timeout interrupts it, then kills it after
// gracePeriod.
func runWithTimeout(ctx context.Context, argv []string, dir string, env []string, timeout time.Duration, maxOutput int) (*result, error) {
	stdout := newCollector(maxOutput)
	stderr := newCollector(maxOutput)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Children that inherit the output pipes must not hold Wait forever.
	cmd.WaitDelay = gracePeriod
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var execErr error
	select {
	case execErr = <-done:
	case <-ctx.Done():
		signalGroup(cmd, os.Kill)
		<-done
		execErr = ctx.Err()
	case <-timer.C:
		signalGroup(cmd, os.Interrupt)
		select {
		case <-done:
		case <-time.After(gracePeriod):
			signalGroup(cmd, os.Kill)
			<-done
		}
		execErr = errTimeout
	}

	res := &result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
	}
	switch {
	case execErr == nil, errors.Is(execErr, exec.ErrWaitDelay):
	case errors.Is(execErr, errTimeout), errors.Is(execErr, context.Canceled), errors.Is(execErr, context.DeadlineExceeded):
		res.ExitCode = -1
		return res, execErr
	default:
		var exitErr *exec.ExitError
		if !errors.As(execErr, &exitErr) {
			return res, execErr
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

// collector captures command output up to a size limit. Binary output is
// replaced with a marker.
type collector struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	maxBytes  int
	truncated bool
	isBinary  bool
	checked   int
}

func newCollector(maxBytes int) *collector {
	return &collector{maxBytes: maxBytes}
}

func (c *collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isBinary {
		return len(p), nil
	}

	if c.checked < binarySampleSize {
		sample := p[:min(len(p), binarySampleSize-c.checked)]
		if bytes.IndexByte(sample, 0) >= 0 {
			c.isBinary = true
			c.truncated = true
			return len(p), nil
		}
		c.checked += len(sample)
	}

	remaining := c.maxBytes - c.buffer.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	chunk := p
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
		c.truncated = true
	}
	c.buffer.Write(chunk)
	return len(p), nil
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isBinary {
		return "[binary output]"
	}
	return c.buffer.String()
}
