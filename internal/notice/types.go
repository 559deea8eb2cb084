package notice

import (
	"errors"
	"time"
)

// ErrOversize is returned by image fetchers when the payload reaches the size ceiling.
var ErrOversize = errors.New("image exceeds size ceiling")

// Job is one accepted skill request waiting for its background run.
type Job struct {
	ID            string
	RequestID     string
	ImageURL      string
	CallbackURL   string
	CallbackToken string
	Accepted      time.Time
}

// OutcomeKind tags the terminal state of a job.
type OutcomeKind string

// Outcome kinds, one per terminal state of the runner.
const (
	OutcomeDelivered         OutcomeKind = "delivered"
	OutcomeRejectedPacing    OutcomeKind = "rejected_pacing"
	OutcomeRejectedCooldown  OutcomeKind = "rejected_cooldown"
	OutcomeRejectedOversize  OutcomeKind = "rejected_oversize"
	OutcomeTimedOut          OutcomeKind = "timed_out"
	OutcomeUpstreamThrottled OutcomeKind = "upstream_throttled"
	OutcomeTransientError    OutcomeKind = "transient_error"
)

// Outcome is the single result of a job run. Only the fields relevant to
// Kind are populated.
type Outcome struct {
	Kind OutcomeKind
	// Text is the summary for OutcomeDelivered.
	Text string
	// Remaining is the cooldown time left for OutcomeRejectedCooldown.
	Remaining time.Duration
	// WaitHint is the upstream back-off hint for OutcomeUpstreamThrottled.
	WaitHint time.Duration
	// Cooldown reports that the throttle escalated into a same-day cooldown.
	Cooldown bool
	// Detail carries technical context for logs. Never shown to users.
	Detail string
}

// Delivered builds a successful outcome.
func Delivered(text string) Outcome {
	return Outcome{Kind: OutcomeDelivered, Text: text}
}

// TransientError builds a failure outcome with log detail.
func TransientError(detail string) Outcome {
	return Outcome{Kind: OutcomeTransientError, Detail: detail}
}

// Image is a downloaded photo.
type Image struct {
	URL         string
	Body        []byte
	ContentType string
	Duration    time.Duration
}
