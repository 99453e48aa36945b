package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is one executed tool call, recorded for the reply footer.
type Action struct {
	Name   string
	Detail string
	OK     bool
}

const (
	footerMaxLines   = 8
	footerDetailSize = 60
)

// DescribeCall extracts a short human-readable detail from a call's
// arguments. Falls back to the first string argument found.
func DescribeCall(name string, rawArgs json.RawMessage) string {
	args := ParseArgs(rawArgs)
	for _, key := range []string{"command", "path", "query", "name", "service", "text", "content", "id"} {
		if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
			return shorten(strings.TrimSpace(v), footerDetailSize)
		}
	}
	for _, v := range args {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return shorten(strings.TrimSpace(s), footerDetailSize)
		}
	}
	return ""
}

// ResultOK decides whether a textual tool result reads as success.
func ResultOK(result string) bool {
	head := strings.ToLower(result)
	if len(head) > 200 {
		head = head[:200]
	}
	for _, marker := range []string{"error:", "[error]", "command blocked", "failed", "not allowed", "cannot write", "unknown tool"} {
		if strings.Contains(head, marker) {
			return false
		}
	}
	return true
}

// BuildFooter renders the tool-usage summary appended to a reply. Empty
// when no actions were recorded.
func BuildFooter(actions []Action) string {
	if len(actions) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool usage (%d):\n", len(actions))
	shown := actions
	if len(shown) > footerMaxLines {
		shown = shown[:footerMaxLines]
	}
	for _, a := range shown {
		mark := "✓"
		if !a.OK {
			mark = "✗"
		}
		if a.Detail != "" {
			fmt.Fprintf(&sb, "  %s %s: %s\n", mark, a.Name, a.Detail)
		} else {
			fmt.Fprintf(&sb, "  %s %s\n", mark, a.Name)
		}
	}
	if extra := len(actions) - len(shown); extra > 0 {
		fmt.Fprintf(&sb, "  ... +%d more\n", extra)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func shorten(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
