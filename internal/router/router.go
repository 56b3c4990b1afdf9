// Package router selects the provider for a classified turn.
package router

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/sysmate/internal/classifier"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// Reason records why a provider was selected.
type Reason string

const (
	ReasonClassificationMatch Reason = "classification-match"
	ReasonFallback            Reason = "fallback"
	ReasonExplicitOverride    Reason = "explicit-override"
)

// Selection is the chosen provider for a turn.
type Selection struct {
	Provider string
	Reason   Reason
}

// Request carries everything routing depends on.
type Request struct {
	Classification classifier.Classification
	// Available is the set of providers usable for this turn.
	Available map[string]bool
	// Override, when set, names the provider the user pinned.
	Override string
}

// NoProviderAvailableError is returned when neither the mapped provider nor
// the default can serve a turn.
type NoProviderAvailableError struct {
	Capability tool.Capability
	Tried      []string
}

func (e *NoProviderAvailableError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("no provider available for %s requests", e.Capability)
	}
	return fmt.Sprintf("no provider available for %s requests (tried: %s)", e.Capability, strings.Join(e.Tried, ", "))
}

// Router maps capability classes to provider ids.
type Router struct {
	routes   map[tool.Capability]string
	fallback string
}

// New creates a router. routes maps capabilities to provider ids; fallback
// is used when the mapped provider is missing or unavailable.
func New(routes map[tool.Capability]string, fallback string) *Router {
	cp := make(map[tool.Capability]string, len(routes))
	for k, v := range routes {
		cp[k] = v
	}
	return &Router{routes: cp, fallback: fallback}
}

// Route returns the provider mapped to capability, if any.
func (r *Router) Route(capability tool.Capability) (string, bool) {
	id, ok := r.routes[capability]
	return id, ok
}

// Fallback returns the default provider id.
func (r *Router) Fallback() string {
	return r.fallback
}

// Select picks a provider: an available override first, then the mapped
// provider, then the fallback.
func (r *Router) Select(req Request) (Selection, error) {
	if req.Override != "" && req.Available[req.Override] {
		return Selection{Provider: req.Override, Reason: ReasonExplicitOverride}, nil
	}

	var tried []string
	if id, ok := r.routes[req.Classification.Capability]; ok && id != "" {
		if req.Available[id] {
			return Selection{Provider: id, Reason: ReasonClassificationMatch}, nil
		}
		tried = append(tried, id)
	}

	if r.fallback != "" && !contains(tried, r.fallback) {
		if req.Available[r.fallback] {
			return Selection{Provider: r.fallback, Reason: ReasonFallback}, nil
		}
		tried = append(tried, r.fallback)
	}

	return Selection{}, &NoProviderAvailableError{Capability: req.Classification.Capability, Tried: tried}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
