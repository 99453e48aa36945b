package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"homebot/internal/logger"
)

// ShortLimitThreshold separates limits worth auto-retrying inline from
// those that must be surfaced to the caller. The bound is inclusive: a
// delay of exactly 90s still counts as short.
const ShortLimitThreshold = 90 * time.Second

// fallbackWindow applies when the provider error carried no parseable
// retry hint. Never assume "no limit" just because the text was opaque.
const fallbackWindow = 60 * time.Minute

const previewLimit = 300

type LimitType string

const (
	LimitShort   LimitType = "short"
	LimitLong    LimitType = "long"
	LimitUnknown LimitType = "unknown"
)

// Record is the most recent throttling event for one provider. Each new
// event overwrites the previous one; no history is kept.
type Record struct {
	LastHit      time.Time `json:"last_hit"`
	RetrySeconds *float64  `json:"retry_seconds"`
	ResetAt      time.Time `json:"reset_at"`
	LimitType    LimitType `json:"limit_type"`
	ErrorPreview string    `json:"error_preview,omitempty"`
}

// LimitedError is the one failure that crosses the agent-loop boundary,
// so the platform layer can queue the request for later.
type LimitedError struct {
	Provider  string
	Remaining time.Duration
	Type      LimitType
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("provider %s rate limited (%s), retry in ~%s",
		e.Provider, e.Type, e.Remaining.Round(time.Second))
}

// Tracker persists per-provider throttle state to a flat JSON file so a
// process restart does not forget an active limit. The file is reloaded
// on every query and rewritten atomically on every mutation.
type Tracker struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
	log  *logger.LogEntry
}

func NewTracker(path string) *Tracker {
	return &Tracker{
		path: path,
		now:  time.Now,
		log:  logger.Named("ratelimit"),
	}
}

// RecordHit stores a throttling event, parsing the retry hint out of the
// raw provider error text.
func (t *Tracker) RecordHit(provider, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	rec := Record{LastHit: now}
	if secs, ok := parseRetryAfter(errText, now); ok {
		rec.RetrySeconds = &secs
		rec.ResetAt = now.Add(time.Duration(secs * float64(time.Second)))
		rec.LimitType = classify(secs)
		t.log.WithFields(logger.Fields{"provider": provider, "retry_seconds": secs, "type": rec.LimitType}).
			Info("rate limit recorded")
	} else {
		rec.ResetAt = now.Add(fallbackWindow)
		rec.LimitType = LimitUnknown
		t.log.WithField("provider", provider).Info("rate limit without retry hint, assuming 60m")
	}
	if errText != "" {
		rec.ErrorPreview = truncate(errText, previewLimit)
	}

	data := t.load()
	data[provider] = rec
	t.save(data)
}

// IsLimited reports whether the provider is inside an active window.
// Expired records are cleared as a side effect of the check.
func (t *Tracker) IsLimited(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := t.load()
	rec, ok := data[provider]
	if !ok {
		return false
	}
	if !t.now().UTC().Before(rec.ResetAt) {
		delete(data, provider)
		t.save(data)
		return false
	}
	return true
}

// TimeRemaining returns the time until the provider's window resets.
// The bool is false when no record exists.
func (t *Tracker) TimeRemaining(provider string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.load()[provider]
	if !ok {
		return 0, false
	}
	remaining := rec.ResetAt.Sub(t.now().UTC())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// ShouldAutoRetry returns the wait before an inline retry is worthwhile.
// Only records classified short qualify; a long or unknown limit stays
// surfaced even once its remaining window has dwindled under the
// threshold.
func (t *Tracker) ShouldAutoRetry(provider string) (time.Duration, bool) {
	rec, ok := t.Snapshot(provider)
	if !ok || rec.LimitType != LimitShort {
		return 0, false
	}
	remaining, ok := t.TimeRemaining(provider)
	if !ok || remaining <= 0 || remaining > ShortLimitThreshold {
		return 0, false
	}
	return remaining, true
}

// Clear drops the provider's record, typically after a clean response.
func (t *Tracker) Clear(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := t.load()
	if _, ok := data[provider]; !ok {
		return
	}
	delete(data, provider)
	t.save(data)
	t.log.WithField("provider", provider).Debug("rate limit cleared")
}

// Snapshot exposes the stored record for status surfaces.
func (t *Tracker) Snapshot(provider string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.load()[provider]
	return rec, ok
}

func classify(retrySeconds float64) LimitType {
	if time.Duration(retrySeconds*float64(time.Second)) <= ShortLimitThreshold {
		return LimitShort
	}
	return LimitLong
}

func (t *Tracker) load() map[string]Record {
	data := map[string]Record{}
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]Record{}
	}
	return data
}

// save rewrites the whole file through a temp sibling plus rename, so
// readers never observe a half-written map.
func (t *Tracker) save(data map[string]Record) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		t.log.WithError(err).Warn("failed to encode rate limits")
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.log.WithError(err).Warn("failed to create rate limit dir")
		return
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		t.log.WithError(err).Warn("failed to write rate limits")
		return
	}
	if err := os.Rename(tmp, t.path); err != nil {
		t.log.WithError(err).Warn("failed to replace rate limit file")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
