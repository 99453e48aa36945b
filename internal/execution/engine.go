package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"homebot/internal/agent"
	"homebot/internal/logger"
	"homebot/internal/ratelimit"
	"homebot/internal/tools"
)

const (
	// DefaultMaxTurns bounds the number of model round-trips per request.
	DefaultMaxTurns = 40
	// DefaultMaxToolCalls bounds total tool executions per request,
	// independent of how they are spread across turns.
	DefaultMaxToolCalls = 50

	defaultRequestTimeout = 2 * time.Minute

	// recentCallWindow is how many consecutive identical tool calls
	// trigger the loop breaker.
	recentCallWindow = 3
)

const loopBreakMessage = "You appear to be repeating the same tool call. " +
	"Stop, look at the results you already have, and either try a different approach or answer the user directly."

const exhaustedMessage = "I made too many attempts. Please try a simpler request."

const toolCapMessage = "I made too many tool calls. Please try a simpler request."

// Options configures an Engine. Zero values fall back to the defaults
// above.
type Options struct {
	Client         agent.ModelClient
	Runtime        *tools.Runtime
	Tracker        *ratelimit.Tracker
	Model          string
	EnableTools    bool
	MaxTurns       int
	MaxToolCalls   int
	RequestTimeout time.Duration
	// Sleep is swapped in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Diagnostics summarizes one completed run.
type Diagnostics struct {
	Provider  string
	Turns     int
	ToolCalls int
	Actions   []tools.Action
}

// Engine drives the model/tool conversation loop for one request. The
// only error it returns is *ratelimit.LimitedError; every other failure
// is folded into the reply text so the caller always has something to
// show.
type Engine struct {
	opts Options
	log  *logger.LogEntry
}

func NewEngine(opts Options) *Engine {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = DefaultMaxToolCalls
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Engine{opts: opts, log: logger.Named("engine")}
}

// Run executes the loop: preflight the rate-limit state, call the model,
// execute any tool calls, feed results back, and stop at the first
// response without tool calls. History is prior conversation only; the
// new user message is appended here.
func (e *Engine) Run(ctx context.Context, systemPrompt string, history []agent.Message, userMessage string) (string, Diagnostics, error) {
	provider := e.opts.Client.Name()
	diag := Diagnostics{Provider: provider}

	messages := make([]agent.Message, 0, len(history)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, agent.System(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, agent.User(userMessage))

	var specs []agent.ToolSpec
	if e.opts.EnableTools && e.opts.Runtime != nil {
		specs = e.opts.Runtime.Registry().Specs()
	}

	recentCalls := make([]string, 0, recentCallWindow)
	retried := false

	for turn := 0; turn < e.opts.MaxTurns; turn++ {
		diag.Turns = turn + 1

		if err := e.preflight(provider, turn, &retried); err != nil {
			return "", diag, err
		}

		completion, err := e.complete(ctx, agent.Prompt{
			Model:    e.opts.Model,
			Messages: messages,
			Tools:    specs,
		})
		if err != nil {
			if e.opts.Tracker != nil && ratelimit.IsRateLimitSignal(err.Error()) {
				e.opts.Tracker.RecordHit(provider, err.Error())
				if wait, ok := e.opts.Tracker.ShouldAutoRetry(provider); ok && turn == 0 && !retried {
					retried = true
					e.log.WithField("wait", wait).Info("rate limited, retrying inline")
					e.opts.Sleep(wait + time.Second)
					// The window has been waited out; a fresh 429 will
					// re-record it.
					e.opts.Tracker.Clear(provider)
					turn--
					continue
				}
				remaining, _ := e.opts.Tracker.TimeRemaining(provider)
				rec, _ := e.opts.Tracker.Snapshot(provider)
				return "", diag, &ratelimit.LimitedError{Provider: provider, Remaining: remaining, Type: rec.LimitType}
			}
			e.log.WithError(err).Warn("model request failed")
			return e.withFooter(fmt.Sprintf("Error: model request failed: %v", err), diag.Actions), diag, nil
		}

		if len(completion.ToolCalls) == 0 {
			// Clean final answer, so any stale limit record is moot.
			if e.opts.Tracker != nil {
				e.opts.Tracker.Clear(provider)
			}
			return e.withFooter(completion.Text, diag.Actions), diag, nil
		}

		messages = append(messages, agent.Assistant(completion.Text, completion.ToolCalls...))

		// A corrective nudge must not break the assistant/tool message
		// adjacency providers require, so it is buffered until every
		// result in this batch has been appended.
		loopBroken := false
		for _, call := range completion.ToolCalls {
			diag.ToolCalls++
			if diag.ToolCalls > e.opts.MaxToolCalls {
				e.log.WithField("calls", diag.ToolCalls).Warn("tool call budget exhausted")
				return e.withFooter(toolCapMessage, diag.Actions), diag, nil
			}

			recentCalls = append(recentCalls, call.Name)
			if len(recentCalls) > recentCallWindow {
				recentCalls = recentCalls[1:]
			}
			if len(recentCalls) == recentCallWindow && allSame(recentCalls) {
				e.log.WithField("tool", call.Name).Warn("breaking tool loop")
				messages = append(messages, agent.ToolResult(call.ID, "(skipped: repeated call)"))
				recentCalls = recentCalls[:0]
				loopBroken = true
				continue
			}

			result := e.invoke(ctx, call)
			if e.opts.Runtime == nil || !e.opts.Runtime.Registry().IsCosmetic(call.Name) {
				diag.Actions = append(diag.Actions, tools.Action{
					Name:   call.Name,
					Detail: tools.DescribeCall(call.Name, call.Arguments),
					OK:     tools.ResultOK(result),
				})
			}
			messages = append(messages, agent.ToolResult(call.ID, tools.Truncate(result, tools.ResultLimit)))
		}
		if loopBroken {
			messages = append(messages, agent.User(loopBreakMessage))
		}
	}

	e.log.WithField("turns", e.opts.MaxTurns).Warn("turn budget exhausted")
	return e.withFooter(exhaustedMessage, diag.Actions), diag, nil
}

// preflight checks the persisted limit state before spending a request.
// A short window on the first turn is waited out once; anything else is
// surfaced as LimitedError.
func (e *Engine) preflight(provider string, turn int, retried *bool) error {
	if e.opts.Tracker == nil || !e.opts.Tracker.IsLimited(provider) {
		return nil
	}
	if wait, ok := e.opts.Tracker.ShouldAutoRetry(provider); ok && turn == 0 && !*retried {
		*retried = true
		e.log.WithField("wait", wait).Info("waiting out short rate limit")
		e.opts.Sleep(wait + time.Second)
		e.opts.Tracker.Clear(provider)
		return nil
	}
	remaining, _ := e.opts.Tracker.TimeRemaining(provider)
	rec, _ := e.opts.Tracker.Snapshot(provider)
	return &ratelimit.LimitedError{Provider: provider, Remaining: remaining, Type: rec.LimitType}
}

func (e *Engine) complete(ctx context.Context, prompt agent.Prompt) (agent.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()
	return e.opts.Client.Complete(ctx, prompt)
}

func (e *Engine) invoke(ctx context.Context, call agent.ToolCall) string {
	if !e.opts.EnableTools || e.opts.Runtime == nil {
		return "Tools are disabled."
	}
	return e.opts.Runtime.Invoke(ctx, call.Name, call.Arguments)
}

func (e *Engine) withFooter(text string, actions []tools.Action) string {
	footer := tools.BuildFooter(actions)
	if footer == "" {
		return text
	}
	if strings.TrimSpace(text) == "" {
		return footer
	}
	return text + "\n\n" + footer
}

func allSame(names []string) bool {
	for _, n := range names[1:] {
		if n != names[0] {
			return false
		}
	}
	return true
}

// Describe renders diagnostics for logs and status surfaces.
func (d Diagnostics) Describe() string {
	raw, _ := json.Marshal(struct {
		Provider  string `json:"provider"`
		Turns     int    `json:"turns"`
		ToolCalls int    `json:"tool_calls"`
	}{d.Provider, d.Turns, d.ToolCalls})
	return string(raw)
}
