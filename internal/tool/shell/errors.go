package shell

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCommandRequired = errors.New("command is required")
	ErrNegativeTimeout = errors.New("timeout_seconds must be >= 0")
)

// TimeoutError is returned when a shell command exceeds its timeout.
type TimeoutError struct {
	Command  string
	Duration time.Duration
	// Output holds whatever the command printed before it was stopped.
	Output string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("command %q timed out after %v", e.Command, e.Duration)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// StartError is returned when a command cannot be started.
type StartError struct {
	Command string
	Cause   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Cause)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}
