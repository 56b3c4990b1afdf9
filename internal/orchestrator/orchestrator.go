// Package orchestrator runs conversation turns: it classifies the request,
// routes it to a provider, and loops over the model's tool calls through
// the policy gate until the model answers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Cyclone1070/sysmate/internal/classifier"
	"github.com/Cyclone1070/sysmate/internal/policy"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/router"
	"github.com/Cyclone1070/sysmate/internal/session"
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/workflow"
)

const tracerName = "github.com/Cyclone1070/sysmate/internal/orchestrator"

const (
	DefaultMaxIterations = 20
	DefaultToolTimeout   = 120 * time.Second
	DefaultHealthTimeout = 1500 * time.Millisecond

	persistTimeout = 5 * time.Second
)

// Backend is a configured provider.
type Backend struct {
	Provider provider.Provider
	// HealthCheck probes the provider before routing to it, if it
	// implements provider.HealthChecker.
	HealthCheck bool
}

// Options configures an Orchestrator.
type Options struct {
	Dispatcher *tool.Dispatcher
	Classifier *classifier.Classifier
	Router     *router.Router
	Gate       *policy.Gate
	Backends   map[string]Backend

	// Store persists transcripts after each turn. Optional.
	Store session.Store

	Budget session.Budget

	// MaxIterations caps the tool-call rounds of one turn. A round is one
	// model response and may hold any number of calls, all of which run.
	MaxIterations int

	ToolTimeout   time.Duration
	HealthTimeout time.Duration
	SystemPrompt  string

	Logger *slog.Logger
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// Orchestrator drives turns for any number of sessions. It holds no
// per-conversation state.
type Orchestrator struct {
	registry      *tool.Registry
	dispatcher    *tool.Dispatcher
	classifier    *classifier.Classifier
	router        *router.Router
	gate          *policy.Gate
	backends      map[string]Backend
	store         session.Store
	budget        session.Budget
	maxIterations int
	toolTimeout   time.Duration
	healthTimeout time.Duration
	systemPrompt  string
	logger        *slog.Logger
	tracer        trace.Tracer
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Router == nil {
		return nil, errors.New("router is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("policy gate is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.New(0)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	backends := make(map[string]Backend, len(opts.Backends))
	for id, b := range opts.Backends {
		if b.Provider != nil {
			backends[id] = b
		}
	}

	return &Orchestrator{
		registry:      opts.Dispatcher.Registry(),
		dispatcher:    opts.Dispatcher,
		classifier:    opts.Classifier,
		router:        opts.Router,
		gate:          opts.Gate,
		backends:      backends,
		store:         opts.Store,
		budget:        opts.Budget,
		maxIterations: opts.MaxIterations,
		toolTimeout:   opts.ToolTimeout,
		healthTimeout: opts.HealthTimeout,
		systemPrompt:  opts.SystemPrompt,
		logger:        opts.Logger,
		tracer:        opts.Tracer,
	}, nil
}

// Providers returns the ids of the configured backends, sorted.
func (o *Orchestrator) Providers() []string {
	ids := make([]string, 0, len(o.backends))
	for id := range o.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OpenSession resumes the transcript stored under id, or starts a new
// session. An empty id generates one.
func (o *Orchestrator) OpenSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return NewSession(uuid.NewString(), nil), nil
	}
	if o.store == nil {
		return NewSession(id, nil), nil
	}
	msgs, err := o.store.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return NewSession(id, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	o.logger.Info("session resumed", "session", id, "messages", len(msgs))
	return NewSession(id, session.NewHistory(msgs...)), nil
}

// SetOverride forces provider id for later turns of s. An empty id clears
// the override.
func (o *Orchestrator) SetOverride(s *Session, id string) error {
	if id != "" {
		if _, ok := o.backends[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProvider, id)
		}
	}
	s.turn.Lock()
	defer s.turn.Unlock()
	s.SetOverride(id)
	o.logger.Info("provider override set", "session", s.id, "provider", id)
	return nil
}

// Clear resets the session's context and its stored transcript.
func (o *Orchestrator) Clear(ctx context.Context, s *Session) error {
	s.turn.Lock()
	defer s.turn.Unlock()
	if err := s.waitSettled(ctx); err != nil {
		return err
	}
	s.history.Reset()
	o.logger.Info("session cleared", "session", s.id)
	if o.store == nil {
		return nil
	}
	if err := o.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("failed to delete stored transcript: %w", err)
	}
	return nil
}

// Run processes one user turn to completion. Events are sent to events
// (which may be nil); a DoneEvent is always the last one.
//
// A cancelled turn returns an error wrapping ErrTurnCancelled. A routing
// failure returns *router.NoProviderAvailableError. Tool failures and
// denials never fail the turn; they are reported to the model.
func (o *Orchestrator) Run(ctx context.Context, s *Session, input string, events chan<- workflow.Event) (err error) {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	t := &turn{o: o, s: s, events: events, logger: o.logger.With("session", s.id)}
	defer t.emit(workflow.DoneEvent{})
	defer t.set(StateIdle)

	if err := s.waitSettled(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTurnCancelled, err)
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.turn",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	err = t.run(ctx, input)
	if err != nil {
		t.logger.Warn("turn failed", "error", err)
		t.emit(workflow.ErrorEvent{Err: err})
	}
	if s.pending() == nil {
		o.persist(context.WithoutCancel(ctx), s)
	}
	return err
}

func (o *Orchestrator) persist(ctx context.Context, s *Session) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := o.store.Save(ctx, s.id, s.history.Messages()); err != nil {
		o.logger.Warn("failed to save transcript", "session", s.id, "error", err)
	}
}

// availability probes the candidate providers concurrently. Providers that
// are not configured are unavailable; providers without health checks are
// assumed available.
func (o *Orchestrator) availability(ctx context.Context, candidates []string) map[string]bool {
	avail := make(map[string]bool, len(candidates))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range candidates {
		b, ok := o.backends[id]
		if !ok {
			avail[id] = false
			continue
		}
		hc, probe := b.Provider.(provider.HealthChecker)
		if !b.HealthCheck || !probe {
			avail[id] = true
			continue
		}
		wg.Add(1)
		go func(id string, hc provider.HealthChecker) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, o.healthTimeout)
			defer cancel()
			err := hc.Health(pctx)
			if err != nil {
				o.logger.Info("provider unhealthy", "provider", id, "error", err)
			}
			mu.Lock()
			avail[id] = err == nil
			mu.Unlock()
		}(id, hc)
	}
	wg.Wait()
	return avail
}

func (o *Orchestrator) candidates(s *Session, capability tool.Capability) []string {
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		for _, existing := range ids {
			if existing == id {
				return
			}
		}
		ids = append(ids, id)
	}
	add(s.Override())
	if id, ok := o.router.Route(capability); ok {
		add(id)
	}
	add(o.router.Fallback())
	return ids
}
