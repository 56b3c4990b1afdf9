// Package adapter turns typed Go tool functions into tool servers.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/mitchellh/mapstructure"
)

// Validator is implemented by request types that check their own fields.
type Validator interface {
	Validate() error
}

// Handler executes a single tool.
type Handler interface {
	Spec() tool.Spec
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Func is a typed tool implementation.
type Func[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// PreviewFunc describes the effect of a typed request before it runs.
type PreviewFunc[Req any] func(ctx context.Context, req Req) (string, error)

// BaseAdapter decodes loosely typed call arguments into Req, runs the
// function and renders Resp for the model.
//
// String responses are returned verbatim; anything else is marshalled to
// JSON.
type BaseAdapter[Req, Resp any] struct {
	spec    tool.Spec
	fn      Func[Req, Resp]
	preview PreviewFunc[Req]
}

// New creates an adapter for fn described by spec.
func New[Req, Resp any](spec tool.Spec, fn Func[Req, Resp]) *BaseAdapter[Req, Resp] {
	return &BaseAdapter[Req, Resp]{spec: spec, fn: fn}
}

// WithPreview attaches a preview function.
func (b *BaseAdapter[Req, Resp]) WithPreview(p PreviewFunc[Req]) *BaseAdapter[Req, Resp] {
	b.preview = p
	return b
}

// Spec implements Handler.
func (b *BaseAdapter[Req, Resp]) Spec() tool.Spec {
	return b.spec
}

func (b *BaseAdapter[Req, Resp]) decode(args map[string]any) (Req, error) {
	var req Req
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return req, err
	}
	if err := dec.Decode(args); err != nil {
		return req, fmt.Errorf("invalid arguments: %w", err)
	}
	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return req, fmt.Errorf("%s validation failed: %w", b.spec.Name, err)
		}
	}
	return req, nil
}

// Execute implements Handler.
func (b *BaseAdapter[Req, Resp]) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := b.decode(args)
	if err != nil {
		return "", err
	}

	resp, err := b.fn(ctx, req)
	if err != nil {
		return "", err
	}

	if s, ok := any(resp).(string); ok {
		return s, nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(out), nil
}

// Preview renders a preview if one is attached.
func (b *BaseAdapter[Req, Resp]) Preview(ctx context.Context, args map[string]any) (string, error) {
	if b.preview == nil {
		return "", nil
	}
	req, err := b.decode(args)
	if err != nil {
		return "", err
	}
	return b.preview(ctx, req)
}
