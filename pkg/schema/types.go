package schema

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// JSONSchema describes the type as a JSON Schema fragment.
	JSONSchema() map[string]any
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) JSONSchema() map[string]any { return map[string]any{"type": "string"} }

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// JSON numbers decode to float64
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

func (t *IntType) JSONSchema() map[string]any { return map[string]any{"type": "integer"} }

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

func (t *FloatType) JSONSchema() map[string]any { return map[string]any{"type": "number"} }

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) JSONSchema() map[string]any { return map[string]any{"type": "boolean"} }

// AnyType accepts every value, including nil.
type AnyType struct{}

func (t *AnyType) Name() string               { return "any" }
func (t *AnyType) Validate(any) error         { return nil }
func (t *AnyType) JSONSchema() map[string]any { return map[string]any{} }

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (t *SliceType) JSONSchema() map[string]any {
	return map[string]any{"type": "array", "items": t.elemType.JSONSchema()}
}

// OptionalType wraps a type so that a missing or nil field is accepted.
type OptionalType struct {
	elemType Type
}

func (t *OptionalType) Name() string { return t.elemType.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.elemType.Validate(value)
}

// JSONSchema widens the element type to also accept null, so the field can
// be listed as required by providers that demand every property there.
func (t *OptionalType) JSONSchema() map[string]any {
	doc := maps.Clone(t.elemType.JSONSchema())
	switch typ := doc["type"].(type) {
	case string:
		doc["type"] = []any{typ, "null"}
	case []any:
		if !slices.Contains(typ, any("null")) {
			doc["type"] = append(slices.Clone(typ), "null")
		}
	}
	return doc
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name       string
	validate   func(any) error
	jsonSchema map[string]any
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

func (t *CustomType) JSONSchema() map[string]any {
	if t.jsonSchema == nil {
		return map[string]any{}
	}
	return t.jsonSchema
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates a validator that accepts every value.
func Any() Type { return &AnyType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Optional marks a field as not required.
func Optional(elemType Type) Type {
	if opt, ok := elemType.(*OptionalType); ok {
		return opt
	}
	return &OptionalType{elemType: elemType}
}

// Custom creates a custom type validator with a user-defined function.
// The optional jsonSchema describes the type to model providers.
func Custom(name string, validate func(any) error, jsonSchema ...map[string]any) Type {
	t := &CustomType{name: name, validate: validate}
	if len(jsonSchema) > 0 {
		t.jsonSchema = jsonSchema[0]
	}
	return t
}

// IsOptional reports whether t was created with Optional.
func IsOptional(t Type) bool {
	_, ok := t.(*OptionalType)
	return ok
}

// ParseType converts a string type name to a Type.
// Supports "string", "int", "float" (or "number"), "bool", "any", slices such as
// "[string]" and a trailing "?" for optional fields ("int?", "[string]?").
func ParseType(typeStr string) (Type, error) {
	typeStr = strings.TrimSpace(typeStr)

	if len(typeStr) > 1 && strings.HasSuffix(typeStr, "?") {
		elemType, err := ParseType(typeStr[:len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Optional(elemType), nil
	}

	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int", "integer":
		return Int(), nil
	case "float", "number":
		return Float(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "any":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"a": "float", "b": "float", "note": "string?"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
