package agent

// ToolSpec describes one tool advertised to the provider, following the
// common function-tool schema convention.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Prompt is the full request for one model turn.
type Prompt struct {
	Model    string
	Messages []Message
	Tools    []ToolSpec
}

// Completion is what one turn produced: either final text, or a batch of
// tool calls to execute (Text may still carry interim commentary).
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}
