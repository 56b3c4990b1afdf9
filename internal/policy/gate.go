package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// DefaultConfirmTimeout bounds how long a confirmation may take.
const DefaultConfirmTimeout = 60 * time.Second

// ConfirmationRequest is shown to the user before a call runs.
type ConfirmationRequest struct {
	Call    provider.ToolCall
	Spec    tool.Spec
	Preview string
}

// Confirmer asks the user to approve a call. It is implemented by the UI.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmationRequest) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, req ConfirmationRequest) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(ctx context.Context, req ConfirmationRequest) (bool, error) {
	return f(ctx, req)
}

// Outcome is the final authorization for one call.
type Outcome struct {
	Decision Decision
	// Asked is true when the user was asked to confirm.
	Asked    bool
	Approved bool
	// Reason explains a denial.
	Reason string
}

// Gate evaluates every call and resolves confirmations. Nothing is cached:
// approving one call never approves another, even for the same tool.
type Gate struct {
	engine    *Engine
	mode      Mode
	confirmer Confirmer
	timeout   time.Duration
	logger    *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithTimeout sets the confirmation timeout.
func WithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate creates a gate. A nil confirmer denies every call that needs
// confirmation.
func NewGate(engine *Engine, mode Mode, confirmer Confirmer, opts ...GateOption) *Gate {
	g := &Gate{
		engine:    engine,
		mode:      mode,
		confirmer: confirmer,
		timeout:   DefaultConfirmTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode returns the gate's policy mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// Evaluate returns the decision for call under the gate's mode without
// asking anyone.
func (g *Gate) Evaluate(call provider.ToolCall, spec tool.Spec) Decision {
	return g.engine.Evaluate(call, spec, g.mode)
}

// Authorize decides whether call may execute.
func (g *Gate) Authorize(ctx context.Context, call provider.ToolCall, spec tool.Spec, preview string) Outcome {
	decision := g.engine.Evaluate(call, spec, g.mode)
	g.logger.Info("policy decision", "tool", spec.Name, "call_id", call.ID, "mode", g.mode, "decision", decision)

	switch decision {
	case DecisionAllow:
		return Outcome{Decision: decision, Approved: true}
	case DecisionConfirm:
		return g.confirm(ctx, call, spec, preview)
	default:
		return Outcome{
			Decision: decision,
			Reason:   fmt.Sprintf("tool %s is not permitted in %s mode", spec.Name, g.mode),
		}
	}
}

func (g *Gate) confirm(ctx context.Context, call provider.ToolCall, spec tool.Spec, preview string) Outcome {
	out := Outcome{Decision: DecisionConfirm, Asked: true}
	if g.confirmer == nil {
		out.Asked = false
		out.Reason = "confirmation required but no confirmer is available"
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		ok  bool
		err error
	}
	done := make(chan answer, 1)
	go func() {
		ok, err := g.confirmer.Confirm(cctx, ConfirmationRequest{Call: call, Spec: spec, Preview: preview})
		done <- answer{ok, err}
	}()

	select {
	case a := <-done:
		switch {
		case a.err != nil && errors.Is(a.err, context.DeadlineExceeded):
			out.Reason = "confirmation timed out"
		case a.err != nil:
			out.Reason = fmt.Sprintf("confirmation failed: %v", a.err)
		case !a.ok:
			out.Reason = "rejected by user"
		default:
			out.Approved = true
		}
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			out.Reason = "confirmation timed out"
		} else {
			out.Reason = "confirmation cancelled"
		}
	}

	g.logger.Info("confirmation resolved", "tool", spec.Name, "call_id", call.ID, "approved", out.Approved, "reason", out.Reason)
	return out
}
