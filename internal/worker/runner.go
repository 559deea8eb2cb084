// Package worker runs one summary job: fetch the photo, pass the rate gate,
// call the upstream model under the job deadline, and send exactly one
// callback.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
	"github.com/JakeFAU/notice-summarizer/internal/policy/ratelimit"
	"github.com/JakeFAU/notice-summarizer/internal/summarizer"
)

const (
	defaultDeadline      = 55 * time.Second
	defaultNotifyTimeout = 10 * time.Second
)

// Config controls Runner behavior.
type Config struct {
	// Deadline bounds the whole job, measured from Run.
	Deadline time.Duration
	// NotifyTimeout bounds the callback, which runs after the deadline context.
	NotifyTimeout time.Duration
	// ThrottleWait is the back-off assumed when a throttle carries no hint.
	ThrottleWait time.Duration
}

// Runner executes jobs.
type Runner struct {
	fetcher    notice.ImageFetcher
	gate       *ratelimit.Gate
	summarizer notice.Summarizer
	notifier   notice.Notifier
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Runner.
func New(
	fetcher notice.ImageFetcher,
	gate *ratelimit.Gate,
	summarizer notice.Summarizer,
	notifier notice.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaultDeadline
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher:    fetcher,
		gate:       gate,
		summarizer: summarizer,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes the job and delivers its message. It always calls the
// notifier exactly once and returns the outcome it reported.
func (r *Runner) Run(ctx context.Context, job notice.Job) notice.Outcome {
	start := time.Now()
	metrics.IncJobsInFlight()
	defer metrics.DecJobsInFlight()

	logger := r.logger.With(
		zap.String("job_id", job.ID),
		zap.String("request_id", job.RequestID),
	)

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.Deadline)
	outcome := r.execute(jobCtx, job, logger)
	cancel()

	r.notify(ctx, job, outcome, logger)

	elapsed := time.Since(start)
	metrics.ObserveJob(string(outcome.Kind), elapsed)
	fields := []zap.Field{
		zap.String("outcome", string(outcome.Kind)),
		zap.Duration("duration", elapsed),
	}
	if outcome.Detail != "" {
		fields = append(fields, zap.String("detail", outcome.Detail))
	}
	if outcome.Kind == notice.OutcomeDelivered {
		logger.Info("job finished", fields...)
	} else {
		logger.Warn("job finished", fields...)
	}
	return outcome
}

func (r *Runner) execute(ctx context.Context, job notice.Job, logger *zap.Logger) (outcome notice.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("job panicked", zap.Any("panic", rec), zap.Stack("stack"))
			outcome = notice.TransientError(fmt.Sprintf("panic: %v", rec))
		}
	}()

	img, err := r.fetcher.Fetch(ctx, job.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, notice.ErrOversize):
			return notice.Outcome{Kind: notice.OutcomeRejectedOversize, Detail: err.Error()}
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return notice.Outcome{Kind: notice.OutcomeTimedOut, Detail: "deadline during fetch"}
		default:
			return notice.TransientError(fmt.Sprintf("fetch image: %v", err))
		}
	}
	logger.Debug("image fetched", zap.Int("bytes", len(img.Body)), zap.Duration("duration", img.Duration))

	permit, err := r.gate.Admit(ctx)
	if err != nil {
		var cooldown *ratelimit.CooldownError
		switch {
		case errors.Is(err, ratelimit.ErrPacing):
			return notice.Outcome{Kind: notice.OutcomeRejectedPacing, WaitHint: r.gate.MinInterval()}
		case errors.As(err, &cooldown):
			return notice.Outcome{Kind: notice.OutcomeRejectedCooldown, Remaining: cooldown.Remaining}
		case ctx.Err() != nil:
			return notice.Outcome{Kind: notice.OutcomeTimedOut, Detail: "deadline while waiting for gate"}
		default:
			return notice.TransientError(fmt.Sprintf("admit: %v", err))
		}
	}

	return r.summarize(ctx, permit, img.Body, logger)
}

// summarize runs the upstream call on its own goroutine. The goroutine owns
// the permit, so the gate stays closed until the call really returns even if
// the job has already given up on it.
func (r *Runner) summarize(
	ctx context.Context,
	permit *ratelimit.Permit,
	image []byte,
	logger *zap.Logger,
) notice.Outcome {
	results := make(chan notice.Outcome, 1)
	go func() {
		defer permit.Release()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("summarizer panicked", zap.Any("panic", rec), zap.Stack("stack"))
				results <- notice.TransientError(fmt.Sprintf("panic: %v", rec))
			}
		}()
		results <- r.call(ctx, permit, image, logger)
	}()

	select {
	case outcome := <-results:
		if outcome.Kind == notice.OutcomeTransientError && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return notice.Outcome{Kind: notice.OutcomeTimedOut, Detail: outcome.Detail}
		}
		return outcome
	case <-ctx.Done():
		return notice.Outcome{Kind: notice.OutcomeTimedOut, Detail: "deadline during upstream call"}
	}
}

func (r *Runner) call(
	ctx context.Context,
	permit *ratelimit.Permit,
	image []byte,
	logger *zap.Logger,
) notice.Outcome {
	start := time.Now()
	text, err := r.summarizer.Summarize(ctx, image)
	elapsed := time.Since(start)
	if err != nil {
		if wait, throttled := summarizer.ClassifyThrottle(err, r.cfg.ThrottleWait); throttled {
			cooldown := permit.Throttled(wait)
			metrics.ObserveUpstreamCall("throttled", elapsed)
			logger.Warn("upstream throttled",
				zap.Duration("wait", wait),
				zap.Bool("cooldown", cooldown),
				zap.Error(err),
			)
			return notice.Outcome{
				Kind:     notice.OutcomeUpstreamThrottled,
				WaitHint: wait,
				Cooldown: cooldown,
				Detail:   err.Error(),
			}
		}
		metrics.ObserveUpstreamCall("error", elapsed)
		return notice.TransientError(fmt.Sprintf("summarize: %v", err))
	}
	metrics.ObserveUpstreamCall("ok", elapsed)
	if strings.TrimSpace(text) == "" {
		text = notice.MsgEmptySummary
	}
	return notice.Delivered(text)
}

func (r *Runner) notify(ctx context.Context, job notice.Job, outcome notice.Outcome, logger *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("notifier panicked", zap.Any("panic", rec))
		}
	}()
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()
	r.notifier.Deliver(notifyCtx, job.CallbackURL, job.CallbackToken, notice.Message(outcome))
}
