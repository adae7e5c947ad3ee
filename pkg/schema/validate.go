package schema

import (
	"maps"
	"slices"
)

// Schema is a map of field names to their expected types.
// Example: {"a": Float(), "b": Float(), "tags": Optional(Slice(String()))}
type Schema map[string]Type

// Validate checks if data conforms to the schema.
// Fields are checked in name order and every failure is reported.
// Keys the schema does not declare are rejected. A nil schema accepts anything.
func Validate(schema Schema, data map[string]any) error {
	if schema == nil {
		return nil
	}

	var errs []error
	for _, fieldName := range schema.Fields() {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists {
			if IsOptional(fieldType) {
				continue
			}
			errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, declared := schema[key]; !declared {
			errs = append(errs, &ValidationError{Key: key, Reason: "unknown field", Value: data[key]})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Validate implements Validator for map states.
// The input is returned unchanged on success.
func (s Schema) Validate(data map[string]any) (map[string]any, error) {
	if err := Validate(s, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Fields returns the field names in sorted order.
func (s Schema) Fields() []string {
	return slices.Sorted(maps.Keys(s))
}

// Required returns the names of the non-optional fields in sorted order.
func (s Schema) Required() []string {
	required := []string{}
	for _, name := range s.Fields() {
		if !IsOptional(s[name]) {
			required = append(required, name)
		}
	}
	return required
}

// JSONSchema describes the schema as a JSON Schema object.
// Every field is listed as required; optional fields accept null instead.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	for name, typ := range s {
		properties[name] = typ.JSONSchema()
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             s.Fields(),
		"additionalProperties": false,
	}
}
