package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"homebot/internal/agent"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client talks to the Anthropic messages API. It is the primary provider
// and effectively a single seat: a process-wide mutex serializes calls,
// so at most one session is mid-call at any time.
type Client struct {
	api   *anthropic.Client
	model string
	seat  sync.Mutex
}

var _ agent.ModelClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("missing ANTHROPIC_API_KEY")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
	}
	if base := normalizeBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{
		api:   &client,
		model: strings.TrimSpace(opts.Model),
	}, nil
}

func normalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		base = strings.TrimRight(strings.TrimSuffix(base, "/v1"), "/")
	}
	return base
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) resolveModel(m string) anthropic.Model {
	if strings.TrimSpace(m) != "" {
		return anthropic.Model(strings.TrimSpace(m))
	}
	return anthropic.Model(c.model)
}

func (c *Client) Complete(ctx context.Context, prompt agent.Prompt) (agent.Completion, error) {
	c.seat.Lock()
	defer c.seat.Unlock()

	params := buildMessageParams(prompt, c.resolveModel(prompt.Model))
	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return agent.Completion{}, err
	}

	var out agent.Completion
	var text strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: json.RawMessage(v.Input),
			})
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out, nil
}

func buildMessageParams(prompt agent.Prompt, model anthropic.Model) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range prompt.Messages {
		switch msg.Role {
		case agent.RoleSystem:
			if text := strings.TrimSpace(msg.Content); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case agent.RoleAssistant:
			messages = append(messages, toAssistantParam(msg))
		case agent.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(toolResultBlock(msg)))
		default:
			if text := strings.TrimSpace(msg.Content); text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 2048,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(prompt.Tools) > 0 {
		params.Tools = toTools(prompt.Tools)
	}
	return params
}

func toAssistantParam(msg agent.Message) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if text := strings.TrimSpace(msg.Content); text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Arguments,
			},
		})
	}
	return anthropic.NewAssistantMessage(blocks...)
}

func toolResultBlock(msg agent.Message) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{
			ToolUseID: msg.ToolCallID,
			Content: []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
			},
		},
	}
}

func toTools(specs []agent.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		tool := anthropic.ToolParam{
			Name:        name,
			InputSchema: toInputSchema(spec.Parameters),
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			tool.Description = anthropic.String(desc)
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func toInputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := params["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := params["required"].([]string); ok {
		schema.Required = req
	}
	return schema
}
