package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/sysmate/internal/policy"
)

// Confirmer asks the user on the terminal. It implements policy.Confirmer.
type Confirmer struct {
	console *Console
	input   *Input
}

// NewConfirmer creates a terminal confirmer.
func NewConfirmer(console *Console, input *Input) *Confirmer {
	return &Confirmer{console: console, input: input}
}

// Confirm shows the call and its preview and waits for y or n. Anything
// other than y or yes rejects; Ctrl+C rejects too.
func (c *Confirmer) Confirm(ctx context.Context, req policy.ConfirmationRequest) (bool, error) {
	st := c.console.Styles
	var b strings.Builder
	b.WriteString(st.Warn.Render(fmt.Sprintf("%s wants to run", req.Spec.Name)))
	if req.Spec.Destructive {
		b.WriteString(st.Dim.Render(" (destructive)"))
	}
	b.WriteString("\n")
	if req.Preview != "" {
		b.WriteString(req.Preview)
	} else {
		b.WriteString(FormatToolCall(req.Call.Name, string(req.Call.Arguments)))
	}
	c.console.Println(st.ConfirmBox.Render(b.String()))

	answer, err := c.input.ReadLine(ctx, "Allow? [y/N] ")
	if errors.Is(err, ErrInterrupt) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

var _ policy.Confirmer = (*Confirmer)(nil)
