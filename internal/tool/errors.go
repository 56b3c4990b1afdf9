package tool

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	ErrRegistrySealed = errors.New("tool registry is sealed")
	ErrInvalidSpec    = errors.New("invalid tool spec")
	ErrServerMissing  = errors.New("tool server unavailable")
)

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a tool name does not resolve.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidArgumentsError is returned when call arguments do not match the
// tool's parameter schema.
type InvalidArgumentsError struct {
	Tool  string
	Cause error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Cause)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Cause
}
