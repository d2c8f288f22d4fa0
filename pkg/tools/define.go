package tools

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// TypedHandler receives arguments decoded into T.
type TypedHandler[T any] func(ctx context.Context, env Env, input T) domain.ToolResult

// Option adjusts a tool definition.
type Option func(*domain.ToolSpec)

// RequiresApproval marks the tool as mutating.
func RequiresApproval() Option {
	return func(s *domain.ToolSpec) { s.RequiresApproval = true }
}

// Define builds a Tool whose parameter schema is reflected from T. Fields
// without omitempty are required. Arguments are decoded with weak typing so
// that "3" satisfies an int field.
func Define[T any](name, description string, handler TypedHandler[T], opts ...Option) Tool {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var zero T
	schema := reflector.Reflect(zero)

	spec := domain.ToolSpec{
		Name:        name,
		Description: description,
		Parameters:  map[string]domain.ParamSpec{},
	}
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			spec.Parameters[pair.Key] = domain.ParamSpec{
				Type:        pair.Value.Type,
				Description: pair.Value.Description,
				Required:    slices.Contains(schema.Required, pair.Key),
			}
		}
	}
	for _, opt := range opts {
		opt(&spec)
	}

	return Tool{
		Spec:   spec,
		Schema: schema,
		Handler: func(ctx context.Context, env Env, args map[string]any) domain.ToolResult {
			var input T
			if err := decode(args, &input); err != nil {
				return domain.Failure("invalid arguments", fmt.Errorf("%w: %v", domain.ErrValidation, err))
			}
			return handler(ctx, env, input)
		},
	}
}

func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
