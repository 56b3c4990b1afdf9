// Package policy decides whether a tool call may run.
package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// Mode is the configured policy mode.
type Mode string

const (
	ModePermissive         Mode = "permissive"
	ModeConfirmDestructive Mode = "confirm-destructive"
	ModeStrict             Mode = "strict"
)

// Modes lists every policy mode.
var Modes = []Mode{ModePermissive, ModeConfirmDestructive, ModeStrict}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Modes, m) {
		return m, nil
	}
	return "", fmt.Errorf("unknown policy mode %q (want one of %v)", s, Modes)
}

// Decision is the outcome of evaluating one call.
type Decision string

const (
	DecisionAllow   Decision = "allow"
	DecisionConfirm Decision = "require-confirmation"
	DecisionDeny    Decision = "deny"
)

// Engine evaluates tool calls. It holds only static configuration, so
// Evaluate is a pure function of its arguments.
type Engine struct {
	whitelist []string
}

// NewEngine creates an engine. whitelist names the tools strict mode
// allows; destructive tools are never allowed in strict mode even when
// listed.
func NewEngine(whitelist []string) *Engine {
	return &Engine{whitelist: slices.Clone(whitelist)}
}

// Whitelisted reports whether name is on the strict-mode whitelist.
func (e *Engine) Whitelisted(name string) bool {
	return slices.Contains(e.whitelist, name)
}

// Evaluate decides a single call. Unknown modes deny.
func (e *Engine) Evaluate(call provider.ToolCall, spec tool.Spec, mode Mode) Decision {
	switch mode {
	case ModePermissive:
		return DecisionAllow
	case ModeConfirmDestructive:
		if spec.Destructive {
			return DecisionConfirm
		}
		return DecisionAllow
	case ModeStrict:
		if !spec.Destructive && e.Whitelisted(spec.Name) {
			return DecisionAllow
		}
		return DecisionDeny
	default:
		return DecisionDeny
	}
}
