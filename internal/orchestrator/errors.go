package orchestrator

import "errors"

var (
	// ErrTurnCancelled is returned by Run when the turn's context ends. The
	// returned error also wraps the context error.
	ErrTurnCancelled = errors.New("turn cancelled")

	ErrEmptyInput      = errors.New("input is empty")
	ErrUnknownProvider = errors.New("unknown provider")

	errNoFinalMessage = errors.New("provider stream ended without a final message")
)
