package cron

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) (*Scheduler, *time.Time) {
	t.Helper()
	s, err := NewScheduler(filepath.Join(t.TempDir(), "cron_jobs.json"))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestAddIntervalJob(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	job, err := s.Add("water plants", 60, "remind me to water the plants", "console")
	if err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || len(job.ID) != 8 {
		t.Fatalf("id = %q", job.ID)
	}
	if job.NextRun == nil || !job.Enabled {
		t.Fatalf("job = %+v", job)
	}

	jobs := s.List()
	if len(jobs) != 1 || jobs[0].Name != "water plants" {
		t.Fatalf("list = %+v", jobs)
	}
}

func TestAddSpecParsesShorthands(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	cases := []struct {
		spec    string
		minutes float64
	}{
		{"15m", 15},
		{"2h", 120},
		{"45", 45},
	}
	for _, tc := range cases {
		job, err := s.AddSpec("j", tc.spec, "msg", "")
		if err != nil {
			t.Fatalf("AddSpec(%q): %v", tc.spec, err)
		}
		if job.IntervalMinutes != tc.minutes {
			t.Fatalf("AddSpec(%q) interval = %v, want %v", tc.spec, job.IntervalMinutes, tc.minutes)
		}
		if job.RunAt != nil || job.DeleteAfterRun {
			t.Fatalf("AddSpec(%q) produced a one-shot job: %+v", tc.spec, job)
		}
	}

	if _, err := s.AddSpec("j", "whenever", "msg", ""); err == nil {
		t.Fatal("nonsense spec must be rejected")
	}
	if _, err := s.AddSpec("j", "in soonish", "msg", ""); err == nil {
		t.Fatal("nonsense delay must be rejected")
	}
}

func TestAddSpecRelativeDelaysAreOneShot(t *testing.T) {
	t.Parallel()
	s, now := newTestScheduler(t)

	cases := []struct {
		spec  string
		delay time.Duration
	}{
		{"in 15m", 15 * time.Minute},
		{"in 2h", 2 * time.Hour},
		{"in 30s", 30 * time.Second},
		{"90s", 90 * time.Second},
		{"15s", 15 * time.Second},
	}
	for _, tc := range cases {
		job, err := s.AddSpec("j", tc.spec, "msg", "")
		if err != nil {
			t.Fatalf("AddSpec(%q): %v", tc.spec, err)
		}
		if job.RunAt == nil || !job.DeleteAfterRun {
			t.Fatalf("AddSpec(%q) must be a one-shot job, got %+v", tc.spec, job)
		}
		if job.IntervalMinutes != 0 {
			t.Fatalf("AddSpec(%q) carries interval %v", tc.spec, job.IntervalMinutes)
		}
		if got := job.RunAt.Sub(*now); got != tc.delay {
			t.Fatalf("AddSpec(%q) fires after %s, want %s", tc.spec, got, tc.delay)
		}
	}
}

func TestAddSpecClockTimeRollsToTomorrow(t *testing.T) {
	t.Parallel()
	s, now := newTestScheduler(t)

	// 08:00 is already past noon, so it must land tomorrow.
	job, err := s.AddSpec("morning", "08:00", "good morning", "")
	if err != nil {
		t.Fatal(err)
	}
	if job.RunAt == nil {
		t.Fatal("expected a one-shot job")
	}
	if !job.RunAt.After(*now) || job.RunAt.Day() != now.Day()+1 {
		t.Fatalf("run at %s, want tomorrow morning", job.RunAt)
	}
	if !job.DeleteAfterRun {
		t.Fatal("one-shot jobs must remove themselves")
	}
}

func TestRemoveByIDAndName(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	a, _ := s.Add("first", 10, "m", "")
	s.Add("second", 10, "m", "")

	if _, err := s.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Remove("second"); err != nil {
		t.Fatal(err)
	}
	if len(s.List()) != 0 {
		t.Fatal("expected all jobs removed")
	}
	if _, err := s.Remove("ghost"); err == nil {
		t.Fatal("missing job must be reported")
	}
}

func TestIntervalJobReschedulesAfterFiring(t *testing.T) {
	t.Parallel()
	s, now := newTestScheduler(t)

	s.Add("tick", 10, "msg", "console")
	*now = now.Add(11 * time.Minute)

	var fired []Job
	s.fireDue(context.Background(), func(_ context.Context, job Job) {
		fired = append(fired, job)
	})
	if len(fired) != 1 || fired[0].Name != "tick" {
		t.Fatalf("fired = %+v", fired)
	}

	jobs := s.List()
	if len(jobs) != 1 {
		t.Fatalf("list = %+v", jobs)
	}
	if jobs[0].RunCount != 1 {
		t.Fatalf("run count = %d", jobs[0].RunCount)
	}
	if jobs[0].NextRun == nil || !jobs[0].NextRun.After(*now) {
		t.Fatalf("next run = %v, want after now", jobs[0].NextRun)
	}

	// Not due again until the next interval.
	s.fireDue(context.Background(), func(_ context.Context, job Job) {
		t.Fatalf("job fired twice: %+v", job)
	})
}

func TestOneShotJobRemovedAfterFiring(t *testing.T) {
	t.Parallel()
	s, now := newTestScheduler(t)

	s.AddOnce("reminder", now.Add(5*time.Minute), "do the thing", "console")
	*now = now.Add(6 * time.Minute)

	count := 0
	s.fireDue(context.Background(), func(_ context.Context, job Job) {
		count++
		if job.Message != "do the thing" {
			t.Fatalf("job = %+v", job)
		}
	})
	if count != 1 {
		t.Fatalf("fired %d times", count)
	}
	if len(s.List()) != 0 {
		t.Fatal("one-shot job must be removed after firing")
	}
}

func TestAddOncePastTimeRejected(t *testing.T) {
	t.Parallel()
	s, now := newTestScheduler(t)

	if _, err := s.AddOnce("late", now.Add(-time.Minute), "m", ""); err == nil {
		t.Fatal("past run time must be rejected")
	}
}

func TestJobsPersistAcrossSchedulers(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cron_jobs.json")

	first, err := NewScheduler(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Add("durable", 30, "m", ""); err != nil {
		t.Fatal(err)
	}

	second, err := NewScheduler(path)
	if err != nil {
		t.Fatal(err)
	}
	jobs := second.List()
	if len(jobs) != 1 || jobs[0].Name != "durable" {
		t.Fatalf("jobs = %+v", jobs)
	}
}
