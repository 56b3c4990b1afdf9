package ui

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/sysmate/internal/orchestrator"
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/workflow"
)

// Renderer prints the events of a turn.
type Renderer struct {
	console  *Console
	markdown MarkdownRenderer
	// Verbose also prints routing and context events.
	Verbose bool
}

// NewRenderer creates a renderer. A nil markdown renderer streams model
// text as it arrives; otherwise the final answer is rendered whole.
func NewRenderer(console *Console, markdown MarkdownRenderer) *Renderer {
	return &Renderer{console: console, markdown: markdown}
}

// Run consumes events until a DoneEvent arrives or the channel closes.
func (r *Renderer) Run(events <-chan workflow.Event) {
	streamed := false
	for e := range events {
		if _, done := e.(workflow.DoneEvent); done {
			return
		}
		r.render(e, &streamed)
	}
}

func (r *Renderer) render(e workflow.Event, streamed *bool) {
	st := r.console.Styles
	switch ev := e.(type) {
	case workflow.RoutedEvent:
		if r.Verbose {
			r.console.Println(st.Dim.Render(fmt.Sprintf("%s -> %s (%s, %s)",
				ev.Classification.Capability, ev.Selection.Provider, ev.Model, ev.Selection.Reason)))
		}
	case workflow.ThinkingEvent:
		*streamed = false
		if r.markdown != nil {
			r.console.Println(st.Dim.Render("thinking..."))
		}
	case workflow.TextDeltaEvent:
		if r.markdown == nil {
			r.console.Print(ev.Text)
			*streamed = true
		}
	case workflow.ContextTrimmedEvent:
		if r.Verbose {
			r.console.Println(st.Dim.Render(fmt.Sprintf("(%d older messages left out of context)", ev.Trimmed)))
		}
	case workflow.ToolStartEvent:
		if *streamed {
			r.console.Println("")
			*streamed = false
		}
		r.console.Println(st.Tool.Render("* " + FormatToolCall(ev.ToolName, ev.Arguments)))
	case workflow.ConfirmationEvent:
		if !ev.Approved {
			r.console.Println(st.Warn.Render("  not approved: " + ev.Reason))
		}
	case workflow.ToolEndEvent:
		r.console.Println(r.toolResult(ev.Result))
	case workflow.FinalEvent:
		r.final(ev, *streamed)
		*streamed = false
	case workflow.ErrorEvent:
		if *streamed {
			r.console.Println("")
		}
		if errors.Is(ev.Err, orchestrator.ErrTurnCancelled) {
			r.console.Println(st.Warn.Render("cancelled"))
			return
		}
		r.console.Println(st.Error.Render("error: " + ev.Err.Error()))
	}
}

func (r *Renderer) toolResult(res tool.Result) string {
	st := r.console.Styles
	switch res.Status {
	case tool.StatusOK:
		return st.OK.Render("  ok ") + st.Dim.Render(summarize(res.Payload))
	case tool.StatusDenied:
		return st.Warn.Render("  denied: " + res.Error)
	default:
		return st.Error.Render("  failed: ") + firstLine(res.Error)
	}
}

func (r *Renderer) final(ev workflow.FinalEvent, streamed bool) {
	st := r.console.Styles
	switch {
	case streamed:
		r.console.Println("")
	case r.markdown != nil:
		out, err := r.markdown.Render(ev.Content, r.console.Width)
		if err != nil {
			out = ev.Content
		}
		r.console.Println(st.Assistant.Render(out))
	default:
		r.console.Println(st.Assistant.Render(ev.Content))
	}
	if ev.Truncated && streamed {
		r.console.Println(st.Warn.Render("(stopped at the tool-call limit)"))
	}
}
