// Package schema provides validation at the boundaries of a run: the initial
// state handed to a graph and the arguments a model passes to a tool.
//
// It defines a simple type system with built-in types (string, int, float, bool,
// any) and support for slices, optional fields and custom validators. Schemas map
// field names to types, enabling runtime validation of map-shaped data:
//
//	input := schema.Schema{
//	    "a":    schema.Float(),
//	    "b":    schema.Float(),
//	    "note": schema.Optional(schema.String()),
//	}
//
//	if err := schema.Validate(input, map[string]any{"a": 1.0, "b": 2.0}); err != nil {
//	    // Handle validation errors
//	}
//
// Schemas can be created programmatically or parsed from type strings, which is
// how tools declared in YAML describe their parameters:
//
//	input, err := schema.ParseTypeMap(map[string]string{"a": "float", "tags": "[string]?"})
//
// Every Schema describes itself as JSON Schema (see Schema.JSONSchema), which is
// what model providers receive as a tool's parameters. When a richer contract is
// needed, OpenAPI validates against an arbitrary JSON Schema document.
//
// Both implement Validator, the interface graphs and tools accept.
package schema
