package tools

import (
	"context"
	"fmt"
	"strings"

	"homebot/internal/delivery"
)

type sendArgs struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// NewSendMessageTool pushes a message out immediately, separate from the
// final reply. Useful for progress notes during long work.
func NewSendMessageTool(sender delivery.Sender, defaultTarget string) Tool {
	return Tool{
		Definition: Definition{
			Name:        "send_message",
			Description: "Send a message to the user right now, before the final reply.",
			Parameters: objectSchema(map[string]any{
				"text":   stringProp("Message text."),
				"target": stringProp("Chat target (default: current chat)."),
			}, "text"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in sendArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Text) == "" {
				return "Nothing to send: text is empty.", nil
			}
			target := strings.TrimSpace(in.Target)
			if target == "" {
				target = defaultTarget
			}
			if err := sender.Send(target, in.Text); err != nil {
				return fmt.Sprintf("Delivery failed: %v", err), nil
			}
			return "Message sent.", nil
		},
	}
}

type statusArgs struct {
	Status string `json:"status"`
}

// NewSetStatusTool lets the model narrate what it is doing. Cosmetic, so
// it never counts toward action reporting.
func NewSetStatusTool(onStatus func(string)) Tool {
	return Tool{
		Definition: Definition{
			Name:        "set_status",
			Description: "Set a short status line describing what you are doing right now.",
			Parameters: objectSchema(map[string]any{
				"status": stringProp("Short present-tense status, e.g. 'checking disk usage'."),
			}, "status"),
		},
		Cosmetic: true,
		Run: func(_ context.Context, args Args) (string, error) {
			var in statusArgs
			_ = args.Decode(&in)
			status := strings.TrimSpace(in.Status)
			if status == "" {
				return "(status unchanged)", nil
			}
			if onStatus != nil {
				onStatus(status)
			}
			return "Status updated.", nil
		},
	}
}
