package tools

import (
	"context"

	"homebot/internal/agent"
)

// Definition describes one tool: the name and schema advertised to the
// provider, which double as the validation surface for incoming calls.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Spec converts the definition into the provider-facing shape.
func (d Definition) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
	}
}

// HandlerFunc executes one call. A returned error becomes model-legible
// text; it never propagates past the runtime.
type HandlerFunc func(ctx context.Context, args Args) (string, error)

// Tool couples a definition with its implementation. Cosmetic tools are
// display-only side effects the user already sees, so they are excluded
// from the tool-usage footer.
type Tool struct {
	Definition Definition
	Cosmetic   bool
	Run        HandlerFunc
}

// objectSchema builds the common function-parameter schema shape.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}
