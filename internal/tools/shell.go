package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultShellTimeout = 2 * time.Minute
	// maxShellTimeout caps the ceiling regardless of what the caller
	// asked for.
	maxShellTimeout = 5 * time.Minute
)

// ShellRunner executes commands under a pty so interactive-ish programs
// still produce combined, ordered output.
type ShellRunner struct {
	Workdir string
}

// Run executes one command with a bounded timeout. The timeout argument
// is a request, clamped to [default, max].
func (r ShellRunner) Run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("empty command")
	}
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	if timeout > maxShellTimeout {
		timeout = maxShellTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-lc", command)
	if r.Workdir != "" {
		cmd.Dir = r.Workdir
	}
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to start pty: %w", err)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, ptmx)
		close(done)
	}()

	err = cmd.Wait()
	ptmx.Close()
	<-done

	out := buf.String()
	if ctx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("timeout after %s", timeout)
	}
	if err != nil {
		return out, fmt.Errorf("command failed: %w", err)
	}
	return out, nil
}

type shellArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

// NewShellTool runs an arbitrary command behind the denylist guardrail.
func NewShellTool(runner ShellRunner) Tool {
	return Tool{
		Definition: Definition{
			Name:        "execute_shell",
			Description: "Run a shell command and return its output.",
			Parameters: objectSchema(map[string]any{
				"command": stringProp("The full shell command to run."),
				"timeout": integerProp("Optional timeout in seconds (max 300)."),
			}, "command"),
		},
		Run: func(ctx context.Context, args Args) (string, error) {
			var in shellArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Command) == "" {
				return "", fmt.Errorf("command is required")
			}
			if pattern, denied := DeniedCommand(in.Command); denied {
				return fmt.Sprintf("Command blocked for safety (matched %q). Use a safer alternative.", pattern), nil
			}
			out, err := runner.Run(ctx, in.Command, time.Duration(in.Timeout)*time.Second)
			if err != nil {
				if out != "" {
					return fmt.Sprintf("%s\n[error] %v", strings.TrimSpace(out), err), nil
				}
				return fmt.Sprintf("Error: %v", err), nil
			}
			if strings.TrimSpace(out) == "" {
				return "(no output)", nil
			}
			return strings.TrimSpace(out), nil
		},
	}
}

var (
	allowedServices = []string{"homebot", "ssh", "networking", "cron"}
	allowedActions  = []string{"status", "restart", "stop", "start", "logs"}
)

type serviceArgs struct {
	Service string `json:"service"`
	Action  string `json:"action"`
}

// NewServiceTool manages systemd services from a fixed allow-list.
func NewServiceTool(runner ShellRunner) Tool {
	return Tool{
		Definition: Definition{
			Name:        "manage_service",
			Description: "Manage a systemd service (homebot, ssh, networking, cron). Actions: status, restart, stop, start, logs.",
			Parameters: objectSchema(map[string]any{
				"service": stringProp("Service name."),
				"action":  stringProp("Action: status, restart, stop, start or logs (default status)."),
			}, "service"),
		},
		Run: func(ctx context.Context, args Args) (string, error) {
			var in serviceArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			service := strings.TrimSpace(in.Service)
			action := strings.ToLower(strings.TrimSpace(in.Action))
			if action == "" {
				action = "status"
			}
			if !contains(allowedServices, service) {
				return fmt.Sprintf("Service %q not allowed. Allowed: %s", service, strings.Join(allowedServices, ", ")), nil
			}
			if !contains(allowedActions, action) {
				return fmt.Sprintf("Action %q not allowed. Allowed: %s", action, strings.Join(allowedActions, ", ")), nil
			}
			command := fmt.Sprintf("sudo systemctl %s %s", action, service)
			if action == "logs" {
				command = fmt.Sprintf("journalctl -u %s -n 30 --no-pager", service)
			}
			out, err := runner.Run(ctx, command, 15*time.Second)
			if err != nil {
				return fmt.Sprintf("Error: %v", err), nil
			}
			if strings.TrimSpace(out) == "" {
				return fmt.Sprintf("Service %s: %s done", service, action), nil
			}
			return strings.TrimSpace(out), nil
		},
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
