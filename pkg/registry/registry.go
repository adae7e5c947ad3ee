// Package registry holds the tools an agent may call and turns raw model
// arguments into validated tool invocations.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and the validated arguments, and returns a result or error.
// String results are passed to the model as is; anything else is JSON encoded.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Tool is a named capability exposed to the model.
type Tool struct {
	Name        string
	Description string

	// Parameters validates decoded arguments. A validator that also implements
	// schema.Describer provides the JSON Schema sent to the model.
	// Nil accepts any object.
	Parameters schema.Validator[map[string]any]

	Function ToolFunction
}

// Definition is the description of a tool handed to a model provider.
type Definition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// Definition describes the tool for a model provider.
// Strict is set only when the parameters close the object and require every
// property, which is what strict function calling accepts.
func (t Tool) Definition() Definition {
	params := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []string{},
		"additionalProperties": false,
	}
	if d, ok := t.Parameters.(schema.Describer); ok {
		params = d.JSONSchema()
	}
	return Definition{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
		Strict:      strictCompatible(params),
	}
}

func strictCompatible(params map[string]any) bool {
	if open, ok := params["additionalProperties"].(bool); !ok || open {
		return false
	}
	required := map[string]bool{}
	switch names := params["required"].(type) {
	case []string:
		for _, n := range names {
			required[n] = true
		}
	case []any:
		for _, n := range names {
			if s, ok := n.(string); ok {
				required[s] = true
			}
		}
	}
	props, _ := params["properties"].(map[string]any)
	for name := range props {
		if !required[name] {
			return false
		}
	}
	return true
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools.
// It panics if two tools share a name, which is a programming error.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return errors.New("tool name is empty")
	}
	if tool.Function == nil {
		return fmt.Errorf("tool %s: function is nil", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions describes every tool, in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke decodes raw, validates it against the tool's parameters and calls the tool.
//
// raw may be a JSON document (string, []byte or json.RawMessage), a
// map[string]any or any JSON-encodable value. Decoding and validation failures
// are returned as *domain.ToolArgsParseError; an unknown name as
// *domain.ToolNotFoundError. Errors from the tool itself are wrapped.
func (r *Registry) Invoke(ctx context.Context, name string, raw any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", &domain.ToolNotFoundError{Name: name}
	}

	args, err := DecodeArgs(raw)
	if err != nil {
		return "", &domain.ToolArgsParseError{Tool: name, Err: err}
	}
	if tool.Parameters != nil {
		args, err = tool.Parameters.Validate(args)
		if err != nil {
			return "", &domain.ToolArgsParseError{Tool: name, Err: err}
		}
	}

	result, err := tool.Function(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	return Stringify(result)
}

// DecodeArgs turns raw tool arguments into an object.
// An empty document is treated as an empty object.
func DecodeArgs(raw any) (map[string]any, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		data = []byte(v)
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		data = encoded
	}

	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Stringify renders a tool result for the model.
func Stringify(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
