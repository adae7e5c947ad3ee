package schema

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI validates map values against a full JSON Schema (OpenAPI 3 dialect).
// Use it when the typed field Schema is not expressive enough, for instance
// for nested objects, enums or numeric bounds.
type OpenAPI struct {
	schema *openapi3.Schema
}

// NewOpenAPI wraps an already built schema.
func NewOpenAPI(s *openapi3.Schema) *OpenAPI {
	return &OpenAPI{schema: s}
}

// ParseOpenAPI reads a JSON Schema document.
func ParseOpenAPI(data []byte) (*OpenAPI, error) {
	s := openapi3.NewSchema()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse json schema: %w", err)
	}
	return &OpenAPI{schema: s}, nil
}

// FromJSONSchema builds a validator from a decoded JSON Schema object.
func FromJSONSchema(doc map[string]any) (*OpenAPI, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode json schema: %w", err)
	}
	return ParseOpenAPI(data)
}

// Validate implements Validator. Values are normalized through JSON first, so
// Go integers and structs are checked the way a JSON payload would be.
func (o *OpenAPI) Validate(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if err := o.schema.VisitJSON(normalized); err != nil {
		return nil, err
	}
	return data, nil
}

// JSONSchema returns the schema as a plain JSON object.
func (o *OpenAPI) JSONSchema() map[string]any {
	raw, err := json.Marshal(o.schema)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

var (
	_ Validator[map[string]any] = (*OpenAPI)(nil)
	_ Describer                 = (*OpenAPI)(nil)
)
