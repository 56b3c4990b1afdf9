package adapter

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/sysmate/internal/tool"
)

// previewer is implemented by handlers that can preview a call.
type previewer interface {
	Preview(ctx context.Context, args map[string]any) (string, error)
}

// LocalServer is an in-process tool server made of handlers.
type LocalServer struct {
	id       string
	order    []string
	handlers map[string]Handler
}

// NewLocalServer creates a server with the given id and handlers.
// Handler specs are stamped with the server id.
func NewLocalServer(id string, handlers ...Handler) (*LocalServer, error) {
	s := &LocalServer{id: id, handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		name := h.Spec().Name
		if _, exists := s.handlers[name]; exists {
			return nil, &tool.DuplicateToolError{Name: name}
		}
		s.handlers[name] = h
		s.order = append(s.order, name)
	}
	return s, nil
}

// ID implements tool.Server.
func (s *LocalServer) ID() string {
	return s.id
}

// Specs implements tool.Server.
func (s *LocalServer) Specs() []tool.Spec {
	specs := make([]tool.Spec, 0, len(s.order))
	for _, name := range s.order {
		spec := s.handlers[name].Spec()
		spec.Server = s.id
		specs = append(specs, spec)
	}
	return specs
}

// Execute implements tool.Server.
func (s *LocalServer) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	h, ok := s.handlers[name]
	if !ok {
		return "", fmt.Errorf("server %s: %w", s.id, &tool.UnknownToolError{Name: name})
	}
	return h.Execute(ctx, args)
}

// Preview implements tool.Previewer.
func (s *LocalServer) Preview(ctx context.Context, name string, args map[string]any) (string, error) {
	h, ok := s.handlers[name]
	if !ok {
		return "", fmt.Errorf("server %s: %w", s.id, &tool.UnknownToolError{Name: name})
	}
	p, ok := h.(previewer)
	if !ok {
		return "", nil
	}
	return p.Preview(ctx, args)
}
