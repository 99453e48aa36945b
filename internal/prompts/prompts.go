package prompts

import (
	"embed"
	"os"
	"strings"
	"time"
)

//go:embed text/*
var builtinFS embed.FS

const corePath = "text/core_prompt.md"

// Core returns the builtin system prompt with time substituted.
func Core(now time.Time) string {
	data, err := builtinFS.ReadFile(corePath)
	if err != nil {
		// The embed is part of the binary; this cannot happen short of a
		// broken build.
		return "You are Homebot, a personal home-server assistant."
	}
	return render(string(data), now)
}

// Load returns the system prompt, preferring an operator-supplied
// override file when it exists.
func Load(overridePath string, now time.Time) string {
	if overridePath != "" {
		if data, err := os.ReadFile(overridePath); err == nil && strings.TrimSpace(string(data)) != "" {
			return render(string(data), now)
		}
	}
	return Core(now)
}

func render(text string, now time.Time) string {
	out := strings.ReplaceAll(text, "{{TIME}}", now.Format("Monday 2006-01-02 15:04 MST"))
	return strings.TrimSpace(out)
}
