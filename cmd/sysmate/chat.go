package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/sysmate/internal/orchestrator"
	"github.com/Cyclone1070/sysmate/internal/ui"
	"github.com/Cyclone1070/sysmate/internal/workflow"
)

const chatHelp = `Commands:
  /help             show this help
  /clear            forget the conversation so far
  /provider         list providers and the current override
  /provider <id>    send every request to provider <id>
  /provider auto    route requests by capability again
  /tools            list the available tools
  exit              leave (Ctrl+D works too)

Ctrl+C cancels the running request.`

func newChatCmd(opts *rootOptions, build Backends) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Each line is one request; the
conversation is kept until /clear. Pass --session to resume a stored
transcript.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, build)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.chat(cmd.Context(), sessionID)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to resume or create")
	return cmd
}

func newAskCmd(opts *rootOptions, build Backends) *cobra.Command {
	var providerID string
	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Run a single request and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, build)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			s, err := a.orchestrator.OpenSession(ctx, "")
			if err != nil {
				return err
			}
			if providerID != "" {
				if err := a.orchestrator.SetOverride(s, providerID); err != nil {
					return err
				}
			}
			if err := a.turn(ctx, s, strings.Join(args, " ")); err != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "send the request to this provider")
	return cmd
}

// chat runs the read-eval loop until exit or end of input.
func (a *app) chat(ctx context.Context, sessionID string) error {
	s, err := a.orchestrator.OpenSession(ctx, sessionID)
	if err != nil {
		return err
	}
	a.greet(s)

	prompt := a.console.Styles.User.Render("> ")
	for {
		line, err := a.input.ReadLine(ctx, prompt)
		if errors.Is(err, ui.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case line == "exit" || line == "quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/"):
			a.command(ctx, s, line)
		default:
			// Failures are rendered as events; the session stays usable.
			_ = a.turn(ctx, s, line)
		}
	}
}

func (a *app) greet(s *orchestrator.Session) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	title.Println("sysmate")
	dim.Printf("session %s, policy %s, providers %s\n",
		s.ID(), a.cfg.Policy.Mode, strings.Join(a.orchestrator.Providers(), ", "))
	for _, err := range a.buildErrors {
		color.New(color.FgYellow).Printf("unavailable: %v\n", err)
	}
	if n := s.Len(); n > 0 {
		dim.Printf("resumed %d messages\n", n)
	}
	dim.Println("type /help for commands")
}

// command handles a slash command.
func (a *app) command(ctx context.Context, s *orchestrator.Session, line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	st := a.console.Styles

	switch name {
	case "/help":
		a.console.Println(chatHelp)
	case "/clear":
		if err := a.orchestrator.Clear(ctx, s); err != nil {
			a.console.Println(st.Error.Render("error: " + err.Error()))
			return
		}
		a.console.Println(st.Dim.Render("conversation cleared"))
	case "/provider":
		a.provider(s, arg)
	case "/tools":
		printTools(a.console, a.dispatcher.Registry().List())
	default:
		a.console.Println(st.Warn.Render(fmt.Sprintf("unknown command %s (try /help)", name)))
	}
}

func (a *app) provider(s *orchestrator.Session, id string) {
	st := a.console.Styles
	switch id {
	case "":
		current := s.Override()
		for _, p := range a.orchestrator.Providers() {
			marker := "  "
			if p == current {
				marker = "* "
			}
			a.console.Println(marker + p)
		}
		if current == "" {
			a.console.Println(st.Dim.Render("routing by capability"))
		}
	case "auto":
		_ = a.orchestrator.SetOverride(s, "")
		a.console.Println(st.Dim.Render("routing by capability"))
	default:
		if err := a.orchestrator.SetOverride(s, id); err != nil {
			a.console.Println(st.Error.Render("error: " + err.Error()))
			return
		}
		a.console.Println(st.Dim.Render("using " + id + " for every request"))
	}
}

// turn runs one request and renders its events. Ctrl+C cancels it.
func (a *app) turn(ctx context.Context, s *orchestrator.Session, input string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	events := make(chan workflow.Event, 16)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		a.renderer.Run(events)
	}()

	err := a.orchestrator.Run(ctx, s, input, events)
	close(events)
	<-rendered
	return err
}
