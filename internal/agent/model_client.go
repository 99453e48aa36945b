package agent

import (
	"context"
	"errors"
)

// ModelClient abstracts a language-model provider. Complete sends the
// running message list (plus the tool catalog when enabled) and returns
// either final text or a batch of tool-call requests.
type ModelClient interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// EchoClient is a fallback when no API key is available.
type EchoClient struct {
	Prefix string
}

func (c EchoClient) Name() string { return "echo" }

func (c EchoClient) Complete(_ context.Context, prompt Prompt) (Completion, error) {
	for i := len(prompt.Messages) - 1; i >= 0; i-- {
		msg := prompt.Messages[i]
		if msg.Role == RoleUser {
			return Completion{Text: c.Prefix + msg.Content}, nil
		}
	}
	return Completion{}, errors.New("no user message to echo")
}
