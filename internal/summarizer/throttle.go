package summarizer

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultThrottleWait applies when a throttle carries no usable hint.
const DefaultThrottleWait = 30 * time.Second

var tryAgainPattern = regexp.MustCompile(`(?i)try again in\s+([0-9.hms]+)`)

// ClassifyThrottle reports whether err is an upstream rate-limit rejection and
// how long to wait. A structured 429 with Retry-After wins over message text.
// defaultWait <= 0 selects DefaultThrottleWait.
func ClassifyThrottle(err error, defaultWait time.Duration) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if defaultWait <= 0 {
		defaultWait = DefaultThrottleWait
	}

	var perr *ProviderError
	structured := errors.As(err, &perr)
	if structured && perr.StatusCode == http.StatusTooManyRequests {
		if perr.RetryAfter > 0 {
			return perr.RetryAfter, true
		}
		return waitFromText(err.Error(), defaultWait), true
	}

	text := strings.ToLower(err.Error())
	if !strings.Contains(text, "rate_limit") &&
		!strings.Contains(text, "rate limit") &&
		!strings.Contains(text, "429") {
		return 0, false
	}
	if structured && perr.RetryAfter > 0 {
		return perr.RetryAfter, true
	}
	return waitFromText(err.Error(), defaultWait), true
}

func waitFromText(msg string, defaultWait time.Duration) time.Duration {
	m := tryAgainPattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return defaultWait
	}
	if d, ok := parseWait(m[1]); ok {
		return d
	}
	return defaultWait
}

// parseWait accepts Go duration grammar restricted to h/m/s/ms units, plus a
// bare number of seconds.
func parseWait(raw string) (time.Duration, bool) {
	s := strings.TrimRight(strings.TrimSpace(raw), ".")
	if s == "" {
		return 0, false
	}
	if !strings.ContainsAny(s, "hms") {
		s += "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
