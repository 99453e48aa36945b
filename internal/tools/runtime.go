package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homebot/internal/logger"
)

// ResultLimit bounds any tool output folded back into the conversation,
// so the provider's context stays bounded regardless of what a tool
// produced.
const ResultLimit = 4000

const defaultDispatchTimeout = 2 * time.Minute

// Runtime is the single entry point for executing tool calls. Invoke
// never fails upward: guardrail rejections, bad arguments, handler
// errors and panics all come back as text the model can read.
type Runtime struct {
	registry *Registry
	timeout  time.Duration
	log      *logger.LogEntry
}

func NewRuntime(registry *Registry, dispatchTimeout time.Duration) *Runtime {
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	return &Runtime{
		registry: registry,
		timeout:  dispatchTimeout,
		log:      logger.Named("tools"),
	}
}

func (rt *Runtime) Registry() *Registry { return rt.registry }

// Invoke dispatches one call by name with a raw argument payload.
func (rt *Runtime) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) string {
	tool, ok := rt.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Unknown tool: %s. Available: %s", name, rt.registry.describeAvailable())
	}

	args := ParseArgs(rawArgs)

	ctx, cancel := context.WithTimeout(ctx, rt.timeout)
	defer cancel()

	result, err := rt.run(ctx, tool, args)
	if err != nil {
		rt.log.WithField("tool", name).WithError(err).Warn("tool call failed")
		return Truncate(fmt.Sprintf("Error: %v", err), ResultLimit)
	}
	if result == "" {
		result = "(no output)"
	}
	return Truncate(result, ResultLimit)
}

func (rt *Runtime) run(ctx context.Context, tool Tool, args Args) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executing %s: %v", tool.Definition.Name, r)
		}
	}()
	return tool.Run(ctx, args)
}

// Truncate bounds a result string, marking the cut.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[truncated]"
}
