package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homebot/internal/cron"
)

type addTaskArgs struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Message  string `json:"message"`
	Target   string `json:"target"`
}

// NewAddTaskTool schedules a reminder or recurring prompt.
func NewAddTaskTool(scheduler *cron.Scheduler, defaultTarget string) Tool {
	return Tool{
		Definition: Definition{
			Name:        "add_scheduled_task",
			Description: "Schedule a task. Intervals repeat ('30m', '2h'); delays ('in 10m', '30s') and times ('15:04', '2026-01-02T15:04') fire once.",
			Parameters: objectSchema(map[string]any{
				"name":     stringProp("Short task name."),
				"schedule": stringProp("Interval like 15m/2h, a one-shot delay like 'in 10m' or 30s, or a one-shot time like 15:04."),
				"message":  stringProp("The prompt to process when the task fires."),
				"target":   stringProp("Chat target for the result (default: current chat)."),
			}, "name", "schedule", "message"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in addTaskArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			target := strings.TrimSpace(in.Target)
			if target == "" {
				target = defaultTarget
			}
			job, err := scheduler.AddSpec(in.Name, in.Schedule, in.Message, target)
			if err != nil {
				return fmt.Sprintf("Could not schedule: %v", err), nil
			}
			if job.RunAt != nil {
				return fmt.Sprintf("Scheduled %q (id %s) once at %s", job.Name, job.ID, job.RunAt.Format("2006-01-02 15:04")), nil
			}
			return fmt.Sprintf("Scheduled %q (id %s) every %s", job.Name, job.ID, formatInterval(job.IntervalMinutes)), nil
		},
	}
}

// NewListTasksTool lists pending scheduled tasks.
func NewListTasksTool(scheduler *cron.Scheduler) Tool {
	return Tool{
		Definition: Definition{
			Name:        "list_scheduled_tasks",
			Description: "List all scheduled tasks.",
			Parameters:  objectSchema(map[string]any{}),
		},
		Run: func(_ context.Context, _ Args) (string, error) {
			jobs := scheduler.List()
			if len(jobs) == 0 {
				return "No scheduled tasks.", nil
			}
			var sb strings.Builder
			for _, job := range jobs {
				when := "disabled"
				if job.NextRun != nil {
					when = "next " + job.NextRun.Format("2006-01-02 15:04")
				}
				kind := "once"
				if job.IntervalMinutes > 0 {
					kind = "every " + formatInterval(job.IntervalMinutes)
				}
				fmt.Fprintf(&sb, "%s  %s (%s, %s, ran %d times)\n", job.ID, job.Name, kind, when, job.RunCount)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	}
}

type removeTaskArgs struct {
	ID string `json:"id"`
}

// NewRemoveTaskTool cancels a scheduled task by ID or name.
func NewRemoveTaskTool(scheduler *cron.Scheduler) Tool {
	return Tool{
		Definition: Definition{
			Name:        "remove_scheduled_task",
			Description: "Remove a scheduled task by its id or exact name.",
			Parameters: objectSchema(map[string]any{
				"id": stringProp("Task id (from list_scheduled_tasks) or exact name."),
			}, "id"),
		},
		Run: func(_ context.Context, args Args) (string, error) {
			var in removeTaskArgs
			if err := args.Decode(&in); err != nil {
				return "", err
			}
			job, err := scheduler.Remove(strings.TrimSpace(in.ID))
			if err != nil {
				return fmt.Sprintf("Could not remove: %v", err), nil
			}
			return fmt.Sprintf("Removed task %q (id %s)", job.Name, job.ID), nil
		},
	}
}

func formatInterval(minutes float64) string {
	d := time.Duration(minutes * float64(time.Minute)).Round(time.Second)
	return d.String()
}
