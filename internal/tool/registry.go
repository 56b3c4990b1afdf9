package tool

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

type entry struct {
	spec   Spec
	schema *jsonschema.Schema
}

// Registry is the static catalog of callable tools. Tools are registered
// during startup; after Seal the registry is read-only and safe for
// concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a tool spec. It fails with *DuplicateToolError if the
// name is already taken.
func (r *Registry) Register(spec Spec) error {
	return r.RegisterAll([]Spec{spec})
}

// RegisterAll adds specs as one batch: either every spec is registered or,
// on the first invalid or duplicate spec, none is.
func (r *Registry) RegisterAll(specs []Spec) error {
	entries := make([]*entry, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidSpec)
		}
		if !spec.Capability.Valid() || spec.Capability == CapabilityConversational {
			return fmt.Errorf("%w: tool %q has unsupported capability %q", ErrInvalidSpec, spec.Name, spec.Capability)
		}
		compiled, err := compileSchema(spec.Name, spec.Parameters)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		entries = append(entries, &entry{spec: spec, schema: compiled})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if _, exists := r.entries[e.spec.Name]; exists || seen[e.spec.Name] {
			return &DuplicateToolError{Name: e.spec.Name}
		}
		seen[e.spec.Name] = true
	}
	for _, e := range entries {
		r.entries[e.spec.Name] = e
		r.order = append(r.order, e.spec.Name)
	}
	return nil
}

// Seal ends the startup phase. Later registrations fail with
// ErrRegistrySealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve returns the spec registered under name.
func (r *Registry) Resolve(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Spec{}, &UnknownToolError{Name: name}
	}
	return e.spec, nil
}

// List returns all specs in registration order.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.entries[name].spec)
	}
	return specs
}

// Declarations returns the LLM declarations in registration order.
func (r *Registry) Declarations() []Declaration {
	specs := r.List()
	decls := make([]Declaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, s.Declaration())
	}
	return decls
}

// Capabilities returns the distinct capabilities of registered tools,
// ordered by the first tool registered for each.
func (r *Registry) Capabilities() []Capability {
	seen := make(map[Capability]bool)
	var caps []Capability
	for _, s := range r.List() {
		if !seen[s.Capability] {
			seen[s.Capability] = true
			caps = append(caps, s.Capability)
		}
	}
	return caps
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) compiled(name string) *jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.schema
	}
	return nil
}
