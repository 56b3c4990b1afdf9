// Package workflow defines the events a turn streams to the UI.
package workflow

import (
	"github.com/Cyclone1070/sysmate/internal/classifier"
	"github.com/Cyclone1070/sysmate/internal/policy"
	"github.com/Cyclone1070/sysmate/internal/router"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted before each provider request.
type ThinkingEvent struct {
	Iteration int
}

func (ThinkingEvent) isEvent() {}

// RoutedEvent is emitted once the turn has a provider.
type RoutedEvent struct {
	Classification classifier.Classification
	Selection      router.Selection
	Model          string
}

func (RoutedEvent) isEvent() {}

// TextDeltaEvent carries partial model output as it streams in.
type TextDeltaEvent struct {
	Text string
}

func (TextDeltaEvent) isEvent() {}

// ToolStartEvent is emitted when a tool call begins evaluation.
type ToolStartEvent struct {
	CallID    string
	ToolName  string
	Arguments string
}

func (ToolStartEvent) isEvent() {}

// ConfirmationEvent is emitted when a call needed confirmation and the
// answer is known.
type ConfirmationEvent struct {
	CallID   string
	ToolName string
	Approved bool
	Reason   string
}

func (ConfirmationEvent) isEvent() {}

// ToolEndEvent is emitted with the result of every tool call, including
// rejected and denied ones.
type ToolEndEvent struct {
	CallID   string
	ToolName string
	Decision policy.Decision
	Result   tool.Result
}

func (ToolEndEvent) isEvent() {}

// ContextTrimmedEvent is emitted when older history is left out of a
// provider request.
type ContextTrimmedEvent struct {
	Trimmed int
	Kept    int
}

func (ContextTrimmedEvent) isEvent() {}

// FinalEvent carries the assistant's final answer for the turn.
type FinalEvent struct {
	Content string
	// Truncated is set when the iteration cap ended the turn.
	Truncated bool
}

func (FinalEvent) isEvent() {}

// ErrorEvent reports a turn-ending error.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) isEvent() {}

// DoneEvent is emitted when the turn completes, successfully or not.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
