package ratelimit

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Providers communicate retry hints in several incompatible shapes:
//
//	"Retry-After: 30"                        (header echo)
//	"retry in 30s" / "try again in 45s"
//	"retry after 60 seconds"
//	"rate_limit_delay: 15.0"
//	"Please retry after 2025-01-15T12:00:00Z" (absolute time)
//
// Each matcher below handles exactly one shape; the first match wins.
var (
	reHeaderEcho = regexp.MustCompile(`retry[-\s]after:\s*(\d+(?:\.\d+)?)`)
	reRetryIn    = regexp.MustCompile(`(?:retry|try again) in (\d+(?:\.\d+)?)\s*s`)
	reRetrySecs  = regexp.MustCompile(`retry after (\d+(?:\.\d+)?)\s*second`)
	reDelayField = regexp.MustCompile(`rate_limit_delay[:\s]+(\d+(?:\.\d+)?)`)
	reRetryAt    = regexp.MustCompile(`retry after (\d{4}-\d{2}-\d{2}t[\d:.]+z?)`)
)

// parseRetryAfter extracts a relative retry delay in seconds from a raw
// provider error. The bool is false when no pattern matched.
func parseRetryAfter(errText string, now time.Time) (float64, bool) {
	msg := strings.ToLower(errText)
	if msg == "" {
		return 0, false
	}
	for _, re := range []*regexp.Regexp{reHeaderEcho, reRetryIn, reRetrySecs, reDelayField} {
		if m := re.FindStringSubmatch(msg); m != nil {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
				return secs, true
			}
		}
	}
	if m := reRetryAt.FindStringSubmatch(msg); m != nil {
		if delay, ok := parseAbsolute(m[1], now); ok {
			return delay, true
		}
	}
	return 0, false
}

func parseAbsolute(stamp string, now time.Time) (float64, bool) {
	raw := strings.ToUpper(stamp)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if reset, err := time.Parse(layout, raw); err == nil {
			delta := reset.Sub(now.UTC()).Seconds()
			if delta < 0 {
				delta = 0
			}
			return delta, true
		}
	}
	return 0, false
}

// IsRateLimitSignal reports whether a provider error looks like
// throttling rather than a hard failure.
func IsRateLimitSignal(errText string) bool {
	msg := strings.ToLower(errText)
	if msg == "" {
		return false
	}
	for _, marker := range []string{"429", "rate limit", "rate_limit", "ratelimit", "too many requests", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
