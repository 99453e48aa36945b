package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"homebot/internal/logger"
)

const tickInterval = 30 * time.Second

// Job is one scheduled task. Interval jobs repeat every IntervalMinutes;
// one-shot jobs carry a RunAt and usually DeleteAfterRun.
type Job struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	IntervalMinutes float64    `json:"interval_minutes,omitempty"`
	RunAt           *time.Time `json:"run_at,omitempty"`
	Message         string     `json:"message"`
	Target          string     `json:"target,omitempty"`
	DeleteAfterRun  bool       `json:"delete_after_run,omitempty"`
	Enabled         bool       `json:"enabled"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
	RunCount        int        `json:"run_count"`
}

// RunFunc receives a due job. The scheduler does not interpret the
// message itself.
type RunFunc func(ctx context.Context, job Job)

// Scheduler persists jobs to a JSON file and fires them on a coarse
// tick. Precision is bounded by the tick interval, which is fine for
// reminder-style work.
type Scheduler struct {
	path string
	mu   sync.Mutex
	jobs []Job
	now  func() time.Time
	log  *logger.LogEntry
}

func NewScheduler(path string) (*Scheduler, error) {
	s := &Scheduler{
		path: path,
		now:  time.Now,
		log:  logger.Named("cron"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		s.log.WithError(err).Warn("job file unreadable, starting empty")
		return nil
	}
	s.jobs = jobs
	return nil
}

func (s *Scheduler) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Add registers a repeating job.
func (s *Scheduler) Add(name string, intervalMinutes float64, message, target string) (Job, error) {
	if intervalMinutes <= 0 {
		return Job{}, fmt.Errorf("interval must be positive, got %v", intervalMinutes)
	}
	next := s.now().Add(time.Duration(intervalMinutes * float64(time.Minute)))
	return s.insert(Job{
		Name:            name,
		IntervalMinutes: intervalMinutes,
		Message:         message,
		Target:          target,
		Enabled:         true,
		NextRun:         &next,
	})
}

// AddOnce registers a one-shot job that removes itself after firing.
func (s *Scheduler) AddOnce(name string, runAt time.Time, message, target string) (Job, error) {
	if !runAt.After(s.now()) {
		return Job{}, fmt.Errorf("run time %s is in the past", runAt.Format(time.RFC3339))
	}
	at := runAt
	return s.insert(Job{
		Name:           name,
		RunAt:          &at,
		Message:        message,
		Target:         target,
		DeleteAfterRun: true,
		Enabled:        true,
		NextRun:        &at,
	})
}

// AddSpec builds the right kind of job from a schedule spelling:
//
//	"15m", "2h", "45"   repeating interval (minutes when bare)
//	"in 15m", "in 2h"   one-shot after a relative delay
//	"30s"               one-shot too; sub-minute repeats are never meant
//	"15:04", RFC 3339   one-shot at an absolute time
func (s *Scheduler) AddSpec(name, spec, message, target string) (Job, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Job{}, errors.New("schedule is required")
	}
	if rest, ok := strings.CutPrefix(spec, "in "); ok {
		minutes, ok := parseIntervalSpec(strings.TrimSpace(rest))
		if !ok {
			return Job{}, fmt.Errorf("cannot parse delay %q: use something like 'in 30s' or 'in 2h'", rest)
		}
		return s.AddOnce(name, s.now().Add(minutesToDuration(minutes)), message, target)
	}
	if minutes, ok := parseIntervalSpec(spec); ok {
		if strings.HasSuffix(spec, "s") {
			return s.AddOnce(name, s.now().Add(minutesToDuration(minutes)), message, target)
		}
		return s.Add(name, minutes, message, target)
	}
	if at, ok := parseTimeSpec(spec, s.now()); ok {
		return s.AddOnce(name, at, message, target)
	}
	return Job{}, fmt.Errorf("cannot parse schedule %q: use an interval like 15m / 2h, a delay like 'in 30s', or a time like 2026-01-02T15:04 or 15:04", spec)
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

func (s *Scheduler) insert(job Job) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(job.Name) == "" {
		job.Name = "task"
	}
	job.ID = uuid.NewString()[:8]
	s.jobs = append(s.jobs, job)
	if err := s.saveLocked(); err != nil {
		s.jobs = s.jobs[:len(s.jobs)-1]
		return Job{}, err
	}
	s.log.WithField("job", job.Name).WithField("id", job.ID).Info("scheduled")
	return job, nil
}

// List returns all jobs sorted by next run time.
func (s *Scheduler) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].NextRun, out[j].NextRun
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

// Remove drops a job by ID or by exact name.
func (s *Scheduler) Remove(idOrName string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, job := range s.jobs {
		if job.ID == idOrName || job.Name == idOrName {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			if err := s.saveLocked(); err != nil {
				return Job{}, err
			}
			return job, nil
		}
	}
	return Job{}, fmt.Errorf("no job matching %q", idOrName)
}

// Start runs the tick loop until the context is cancelled. Due jobs are
// dispatched to onRun sequentially so a slow handler cannot double-fire
// the same job.
func (s *Scheduler) Start(ctx context.Context, onRun RunFunc) {
	ticker := time.NewTicker(tickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.fireDue(ctx, onRun)
			}
		}
	}()
}

func (s *Scheduler) fireDue(ctx context.Context, onRun RunFunc) {
	now := s.now()
	due := s.collectDue(now)
	for _, job := range due {
		s.log.WithField("job", job.Name).WithField("id", job.ID).Info("firing")
		onRun(ctx, job)
	}
}

// collectDue advances bookkeeping under the lock and returns the jobs to
// fire. One-shot jobs are removed here so a handler crash cannot replay
// them.
func (s *Scheduler) collectDue(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	kept := s.jobs[:0]
	changed := false
	for _, job := range s.jobs {
		if !job.Enabled || job.NextRun == nil || job.NextRun.After(now) {
			kept = append(kept, job)
			continue
		}
		fired := job
		due = append(due, fired)
		changed = true
		if job.DeleteAfterRun {
			continue
		}
		last := now
		job.LastRun = &last
		job.RunCount++
		if job.IntervalMinutes > 0 {
			next := now.Add(time.Duration(job.IntervalMinutes * float64(time.Minute)))
			job.NextRun = &next
		} else {
			job.Enabled = false
			job.NextRun = nil
		}
		kept = append(kept, job)
	}
	s.jobs = kept
	if changed {
		if err := s.saveLocked(); err != nil {
			s.log.WithError(err).Warn("failed to persist jobs")
		}
	}
	return due
}

func parseIntervalSpec(spec string) (float64, bool) {
	if v, err := strconv.ParseFloat(spec, 64); err == nil && v > 0 {
		return v, true
	}
	unit := spec[len(spec)-1]
	v, err := strconv.ParseFloat(spec[:len(spec)-1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return v / 60, true
	case 'm':
		return v, true
	case 'h':
		return v * 60, true
	case 'd':
		return v * 60 * 24, true
	}
	return 0, false
}

func parseTimeSpec(spec string, now time.Time) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, spec, now.Location()); err == nil {
			return t, true
		}
	}
	// Bare clock time means the next occurrence of that time today or
	// tomorrow.
	if t, err := time.ParseInLocation("15:04", spec, now.Location()); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.Add(24 * time.Hour)
		}
		return at, true
	}
	return time.Time{}, false
}
