package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

func compileSchema(name string, s *Schema) (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema for %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema for %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return compiled, nil
}

// ParseArguments decodes raw call arguments and validates them against the
// parameter schema of the named tool. Empty input is treated as an empty
// object. Numbers are decoded as json.Number.
func (r *Registry) ParseArguments(name string, raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &InvalidArgumentsError{Tool: name, Cause: err}
	}
	args, ok := doc.(map[string]any)
	if !ok {
		return nil, &InvalidArgumentsError{Tool: name, Cause: errors.New("arguments must be a JSON object")}
	}
	if sch := r.compiled(name); sch != nil {
		if err := sch.Validate(doc); err != nil {
			return nil, &InvalidArgumentsError{Tool: name, Cause: err}
		}
	}
	return args, nil
}
