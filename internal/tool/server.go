package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Server executes the tools it declares. Servers are independent
// resources; a failure in one never affects another.
type Server interface {
	// ID identifies the server. Specs it declares are owned by this ID.
	ID() string

	// Specs returns the tools this server provides.
	Specs() []Spec

	// Execute runs the named tool. Any returned error is reported to the
	// model as an error result.
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Previewer is implemented by servers that can describe the effect of a
// call before it runs. Previews are shown when asking for confirmation.
type Previewer interface {
	Preview(ctx context.Context, name string, args map[string]any) (string, error)
}

// Dispatcher routes approved tool calls to their owning server and
// normalizes the outcome into a Result.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	mu      sync.RWMutex
	servers map[string]Server
}

// NewDispatcher creates a dispatcher backed by the given registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if registry == nil {
		panic("registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		servers:  make(map[string]Server),
	}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// AddServer registers a server and every tool it declares. Specs are
// stamped with the server's ID. If any spec is rejected, nothing is added.
func (d *Dispatcher) AddServer(s Server) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.servers[s.ID()]; exists {
		return fmt.Errorf("tool server %q already added", s.ID())
	}

	specs := s.Specs()
	stamped := make([]Spec, len(specs))
	for i, spec := range specs {
		spec.Server = s.ID()
		stamped[i] = spec
	}
	if err := d.registry.RegisterAll(stamped); err != nil {
		return fmt.Errorf("tool server %q: %w", s.ID(), err)
	}
	d.servers[s.ID()] = s
	return nil
}

func (d *Dispatcher) server(id string) (Server, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.servers[id]
	return s, ok
}

// Execute runs an approved call on the spec's server. Errors and panics
// from the server become error results.
func (d *Dispatcher) Execute(ctx context.Context, spec Spec, args map[string]any) (res Result) {
	s, ok := d.server(spec.Server)
	if !ok {
		d.logger.Warn("tool server unavailable", "tool", spec.Name, "server", spec.Server)
		return Failed(fmt.Sprintf("%v: %s", ErrServerMissing, spec.Server))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool server panicked", "tool", spec.Name, "server", spec.Server, "panic", r)
			res = Failed(fmt.Sprintf("tool %s crashed: %v", spec.Name, r))
		}
	}()

	out, err := s.Execute(ctx, spec.Name, args)
	if err != nil {
		d.logger.Info("tool execution failed", "tool", spec.Name, "error", err)
		return Failed(err.Error())
	}
	return OK(out)
}

// Preview asks the owning server for a preview of the call. It returns
// an empty string when the server has none.
func (d *Dispatcher) Preview(ctx context.Context, spec Spec, args map[string]any) string {
	s, ok := d.server(spec.Server)
	if !ok {
		return ""
	}
	p, ok := s.(Previewer)
	if !ok {
		return ""
	}
	preview, err := p.Preview(ctx, spec.Name, args)
	if err != nil {
		d.logger.Debug("preview failed", "tool", spec.Name, "error", err)
		return ""
	}
	return preview
}
