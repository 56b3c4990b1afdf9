package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Cyclone1070/sysmate/internal/policy"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/router"
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/workflow"
)

const (
	cancelMarker       = "[turn cancelled by user]"
	cancelledBeforeRun = "cancelled before execution"
)

// turn is the state of one Run call.
type turn struct {
	o      *Orchestrator
	s      *Session
	events chan<- workflow.Event
	logger *slog.Logger
}

func (t *turn) emit(e workflow.Event) {
	if t.events != nil {
		t.events <- e
	}
}

func (t *turn) set(st State) {
	t.s.setState(st)
	t.logger.Debug("state transition", "state", st.String())
}

func (t *turn) run(ctx context.Context, input string) error {
	t.s.history.Append(provider.UserMessage(input))

	t.set(StateClassifying)
	cls := t.o.classifier.Classify(input, t.o.registry)
	t.logger.Debug("classified", "capability", cls.Capability, "confidence", cls.Confidence, "scores", cls.Scores)

	t.set(StateRoutingProvider)
	candidates := t.o.candidates(t.s, cls.Capability)
	avail := t.o.availability(ctx, candidates)
	if ctx.Err() != nil {
		return t.cancelled(ctx)
	}
	sel, err := t.o.router.Select(router.Request{Classification: cls, Available: avail, Override: t.s.Override()})
	if err != nil {
		return err
	}
	backend := t.o.backends[sel.Provider]
	t.logger.Info("provider selected", "provider", sel.Provider, "reason", sel.Reason, "capability", cls.Capability)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("capability", string(cls.Capability)),
		attribute.String("provider", sel.Provider),
		attribute.String("route.reason", string(sel.Reason)),
	)
	t.emit(workflow.RoutedEvent{Classification: cls, Selection: sel, Model: backend.Provider.Model()})

	for round := 0; ; round++ {
		if ctx.Err() != nil {
			return t.cancelled(ctx)
		}
		t.set(StateAwaitingModelResponse)
		t.emit(workflow.ThinkingEvent{Iteration: round + 1})

		msg, err := t.complete(ctx, sel.Provider, backend.Provider)
		if err != nil {
			if ctx.Err() != nil {
				return t.cancelled(ctx)
			}
			t.s.history.Append(provider.SystemMessage(fmt.Sprintf("[provider %s failed: %v]", sel.Provider, err)))
			return fmt.Errorf("provider %s: %w", sel.Provider, err)
		}

		if !msg.HasToolCalls() {
			return t.respond(msg.Content, false)
		}
		if round >= t.o.maxIterations {
			t.logger.Warn("iteration cap reached", "max_iterations", t.o.maxIterations, "requested_calls", len(msg.ToolCalls))
			return t.respond(truncationNotice(msg.Content, t.o.maxIterations), true)
		}

		assistant := *msg
		assistant.Role = provider.RoleAssistant
		for i := range assistant.ToolCalls {
			if assistant.ToolCalls[i].ID == "" {
				assistant.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
		assistant = t.s.history.Append(assistant)

		if err := t.runCalls(ctx, assistant.ToolCalls); err != nil {
			return err
		}
	}
}

func truncationNotice(content string, limit int) string {
	notice := fmt.Sprintf("[stopped after %d tool-call rounds; the request may be incomplete]", limit)
	if content == "" {
		return notice
	}
	return content + "\n\n" + notice
}

func (t *turn) respond(content string, truncated bool) error {
	t.set(StateResponding)
	t.s.history.Append(provider.AssistantMessage(content))
	t.emit(workflow.FinalEvent{Content: content, Truncated: truncated})
	return nil
}

// cancelled appends the cancellation marker and returns the turn error.
func (t *turn) cancelled(ctx context.Context) error {
	t.s.history.Append(provider.SystemMessage(cancelMarker))
	t.logger.Info("turn cancelled")
	return fmt.Errorf("%w: %w", ErrTurnCancelled, ctx.Err())
}

// abandon gives calls that never ran a result, keeping every call paired.
func (t *turn) abandon(calls []provider.ToolCall) {
	for _, c := range calls {
		t.s.history.Append(provider.ToolMessage(c, tool.Failed(cancelledBeforeRun)))
	}
}

// runCalls processes the calls of one assistant message in order.
func (t *turn) runCalls(ctx context.Context, calls []provider.ToolCall) error {
	for i, call := range calls {
		if ctx.Err() != nil {
			t.abandon(calls[i:])
			return t.cancelled(ctx)
		}
		res, inflight := t.runCall(ctx, call)
		if inflight != nil {
			t.settleLate(call, inflight, calls[i+1:])
			return fmt.Errorf("%w: %w", ErrTurnCancelled, ctx.Err())
		}
		t.s.history.Append(provider.ToolMessage(call, res))
	}
	return nil
}

// runCall resolves, validates, authorizes and executes one call. If ctx
// ends while the tool runs, the result is not ready and the channel that
// will deliver it is returned instead.
func (t *turn) runCall(ctx context.Context, call provider.ToolCall) (tool.Result, <-chan tool.Result) {
	t.set(StateEvaluatingToolCall)
	t.emit(workflow.ToolStartEvent{CallID: call.ID, ToolName: call.Name, Arguments: string(call.Arguments)})

	end := func(d policy.Decision, res tool.Result) tool.Result {
		t.emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Decision: d, Result: res})
		return res
	}

	spec, err := t.o.registry.Resolve(call.Name)
	if err != nil {
		t.logger.Info("unknown tool requested", "tool", call.Name)
		return end("", tool.Failed(err.Error())), nil
	}
	args, err := t.o.registry.ParseArguments(call.Name, call.Arguments)
	if err != nil {
		t.logger.Info("invalid tool arguments", "tool", call.Name, "error", err)
		return end("", tool.Failed(err.Error())), nil
	}

	decision := t.o.gate.Evaluate(call, spec)
	preview := ""
	if decision == policy.DecisionConfirm {
		t.set(StateAwaitingConfirmation)
		preview = t.o.dispatcher.Preview(ctx, spec, args)
	}
	outcome := t.o.gate.Authorize(ctx, call, spec, preview)
	if outcome.Asked {
		t.emit(workflow.ConfirmationEvent{CallID: call.ID, ToolName: call.Name, Approved: outcome.Approved, Reason: outcome.Reason})
	}
	if !outcome.Approved {
		if ctx.Err() != nil {
			return end(outcome.Decision, tool.Failed(cancelledBeforeRun)), nil
		}
		return end(outcome.Decision, tool.Denied(outcome.Reason)), nil
	}

	t.set(StateExecutingTool)
	ch := t.execute(ctx, spec, args)
	select {
	case res := <-ch:
		return end(outcome.Decision, res), nil
	case <-ctx.Done():
		return tool.Result{}, ch
	}
}

// execute runs the call on its server in a goroutine. The result is always
// delivered, even after ctx ends.
func (t *turn) execute(ctx context.Context, spec tool.Spec, args map[string]any) <-chan tool.Result {
	ch := make(chan tool.Result, 1)
	go func() {
		tctx, cancel := context.WithTimeout(ctx, t.o.toolTimeout)
		defer cancel()
		tctx, span := t.o.tracer.Start(tctx, "tool.execute", trace.WithAttributes(
			attribute.String("tool.name", spec.Name),
			attribute.String("tool.server", spec.Server),
			attribute.Bool("tool.destructive", spec.Destructive),
		))
		res := t.o.dispatcher.Execute(tctx, spec, args)
		span.SetAttributes(attribute.String("tool.status", string(res.Status)))
		if res.Status != tool.StatusOK {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
		ch <- res
	}()
	return ch
}

// settleLate appends the in-flight call's result once it arrives, then
// closes out the turn. The next turn on the session waits for this.
func (t *turn) settleLate(call provider.ToolCall, inflight <-chan tool.Result, rest []provider.ToolCall) {
	settled := t.s.beginSettling()
	t.logger.Info("turn cancelled with tool in flight", "tool", call.Name, "call_id", call.ID)
	go func() {
		defer t.s.endSettling(settled)
		res := <-inflight
		t.s.history.Append(provider.ToolMessage(call, res))
		t.abandon(rest)
		t.s.history.Append(provider.SystemMessage(cancelMarker))
		t.logger.Info("late tool result appended", "tool", call.Name, "call_id", call.ID, "status", res.Status)
		t.o.persist(context.Background(), t.s)
	}()
}

type streamItem struct {
	chunk *provider.StreamChunk
	err   error
}

// complete sends the windowed history to p and relays the stream.
func (t *turn) complete(ctx context.Context, id string, p provider.Provider) (*provider.Message, error) {
	ctx, span := t.o.tracer.Start(ctx, "provider.stream", trace.WithAttributes(
		attribute.String("provider", id),
		attribute.String("model", p.Model()),
	))
	defer span.End()

	msg, err := t.stream(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("tool_calls", len(msg.ToolCalls)))
	return msg, nil
}

func (t *turn) stream(ctx context.Context, p provider.Provider) (*provider.Message, error) {
	window := t.s.history.Window(t.o.budget)
	if window.Orphans > 0 {
		t.logger.Debug("dropped orphan tool results", "count", window.Orphans)
	}
	if window.Trimmed > 0 {
		t.logger.Info("context trimmed", "trimmed", window.Trimmed, "kept", len(window.Messages), "tokens", window.Tokens)
		t.emit(workflow.ContextTrimmedEvent{Trimmed: window.Trimmed, Kept: len(window.Messages)})
	}

	stream, err := p.Stream(ctx, &provider.Request{
		System:   t.o.systemPrompt,
		Messages: window.Messages,
		Tools:    t.o.registry.Declarations(),
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	items := make(chan streamItem)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			chunk, err := stream.Next()
			select {
			case items <- streamItem{chunk, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var final *provider.Message
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case it := <-items:
			if errors.Is(it.err, io.EOF) {
				if final == nil {
					return nil, errNoFinalMessage
				}
				return final, nil
			}
			if it.err != nil {
				return nil, it.err
			}
			if it.chunk == nil {
				continue
			}
			if it.chunk.Delta != "" {
				t.emit(workflow.TextDeltaEvent{Text: it.chunk.Delta})
			}
			if it.chunk.Final != nil {
				final = it.chunk.Final
			}
		}
	}
}
