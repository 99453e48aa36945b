package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Args is the loosely-typed argument set a provider sent with a call.
type Args map[string]any

// ParseArgs decodes a raw argument payload leniently: malformed JSON or
// a non-object payload degrades to an empty set instead of aborting the
// turn, so the model gets a tool-level error it can read and correct.
func ParseArgs(raw json.RawMessage) Args {
	if len(raw) == 0 {
		return Args{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return Args{}
	}
	return out
}

// Decode fills a handler's typed argument struct, coercing weakly typed
// values ("5" into an int, 1 into true) the way providers tend to emit
// them.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
