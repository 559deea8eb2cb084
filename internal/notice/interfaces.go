package notice

import (
	"context"
	"time"
)

// ImageFetcher downloads the photo referenced by a skill request.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (Image, error)
}

// Summarizer turns image bytes into summary text.
type Summarizer interface {
	Summarize(ctx context.Context, image []byte) (string, error)
}

// Notifier delivers the one terminal message of a job. Implementations must
// not return errors; delivery is best-effort.
type Notifier interface {
	Deliver(ctx context.Context, callbackURL, token, text string)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
