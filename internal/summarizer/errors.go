package summarizer

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ProviderError is a non-2xx answer from the upstream model API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	// RetryAfter is the server's back-off hint, zero when none was sent.
	RetryAfter  time.Duration
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, msg)
}

// retryAfterFromHeaders reads Retry-After (delta seconds or HTTP date) and
// falls back to the OpenAI x-ratelimit-reset-* durations.
func retryAfterFromHeaders(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	var longest time.Duration
	for _, key := range []string{"x-ratelimit-reset-requests", "x-ratelimit-reset-tokens"} {
		if d, ok := parseWait(h.Get(key)); ok && d > longest {
			longest = d
		}
	}
	return longest
}
