package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Typed builds a tool whose validated arguments are decoded into T.
// Field names follow `mapstructure` tags, falling back to case-insensitive matching.
//
//	type sumArgs struct {
//	    A float64 `mapstructure:"a"`
//	    B float64 `mapstructure:"b"`
//	}
//
//	tool := registry.Typed("sum", "Adds two numbers",
//	    schema.Schema{"a": schema.Float(), "b": schema.Float()},
//	    func(ctx context.Context, args sumArgs) (any, error) { return args.A + args.B, nil })
func Typed[T any](name, description string, params schema.Validator[map[string]any], fn func(context.Context, T) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		Function: func(ctx context.Context, args map[string]any) (any, error) {
			var typed T
			if err := Decode(args, &typed); err != nil {
				return nil, &domain.ToolArgsParseError{Tool: name, Err: err}
			}
			return fn(ctx, typed)
		},
	}
}

// Decode copies args into out, converting JSON numbers to the target field types.
func Decode(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(args)
}
