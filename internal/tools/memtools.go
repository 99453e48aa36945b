package tools

import (
	"context"
	"fmt"
	"strings"

	"homebot/internal/memory"
)

type rememberArgs struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// NewRememberFactTool stores one long-term fact.
func NewRememberFactTool(store *memory.FactStore) Tool {
	return Tool{
		Definition: Definition{
			Name:        "remember_fact",
			Description: "Save a fact to long-term memory. Use for preferences, device details, recurring context.",
			Parameters: objectSchema(map[string]any{
				"category": stringProp("Short category, e.g. 'preference', 'device', 'person'."),
				"content":  stringProp("The fact to remember."),
			}, "category", "content"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in rememberArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			if err := store.Add(in.Category, in.Content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Remembered [%s]: %s", in.Category, in.Content), nil
		},
	}
}

type recallArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// NewRecallFactsTool searches long-term memory. An empty query returns
// the newest facts.
func NewRecallFactsTool(store *memory.FactStore) Tool {
	return Tool{
		Definition: Definition{
			Name:        "recall_facts",
			Description: "Search long-term memory for saved facts.",
			Parameters: objectSchema(map[string]any{
				"query": stringProp("What to look for. Empty returns the most recent facts."),
				"limit": integerProp("Max results (default 10)."),
			}),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in recallArgs
			_ = args.Decode(&in)
			if in.Limit <= 0 {
				in.Limit = 10
			}
			facts, err := store.Search(in.Query, in.Limit)
			if err != nil {
				return "", err
			}
			if len(facts) == 0 {
				return "No matching facts in memory.", nil
			}
			var sb strings.Builder
			for _, f := range facts {
				fmt.Fprintf(&sb, "[%s] %s (%s)\n", f.Category, f.Content, f.TS.Format("2006-01-02"))
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	}
}

type recallMessagesArgs struct {
	Chat  string `json:"chat"`
	Limit int    `json:"limit"`
}

// NewRecallMessagesTool reads back recent conversation history.
func NewRecallMessagesTool(store *memory.HistoryStore, defaultChat string) Tool {
	return Tool{
		Definition: Definition{
			Name:        "recall_messages",
			Description: "Read recent messages from the conversation history.",
			Parameters: objectSchema(map[string]any{
				"chat":  stringProp("Chat to read (default: the current one)."),
				"limit": integerProp("How many messages (default 20)."),
			}),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in recallMessagesArgs
			_ = args.Decode(&in)
			chat := strings.TrimSpace(in.Chat)
			if chat == "" {
				chat = defaultChat
			}
			entries, err := store.Recent(chat, in.Limit)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "No history for this chat.", nil
			}
			var sb strings.Builder
			for _, e := range entries {
				fmt.Fprintf(&sb, "%s %s: %s\n", e.TS.Format("01-02 15:04"), e.Role, e.Content)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	}
}
