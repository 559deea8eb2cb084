// Package dispatcher launches jobs detached from the HTTP request that
// accepted them and drains them on shutdown.
package dispatcher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

// ErrClosed is returned by Submit after Shutdown began.
var ErrClosed = errors.New("dispatcher is shut down")

// Runner executes one job to completion, including its notification.
type Runner interface {
	Run(ctx context.Context, job notice.Job) notice.Outcome
}

// Task is a handle to one submitted job. Request handlers never wait on it.
type Task struct {
	job     notice.Job
	done    chan struct{}
	outcome notice.Outcome
}

// Job returns the submitted job.
func (t *Task) Job() notice.Job {
	return t.job
}

// Done is closed when the job has finished and notified.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the result. It is only meaningful after Done is closed.
func (t *Task) Outcome() notice.Outcome {
	<-t.done
	return t.outcome
}

// Dispatcher starts runner goroutines on a long-lived base context.
type Dispatcher struct {
	runner Runner
	logger *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher.
func New(runner Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner: runner,
		logger: logger,
		base:   base,
		cancel: cancel,
	}
}

// Submit starts job in the background and returns its handle.
func (d *Dispatcher) Submit(job notice.Job) (*Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	task := &Task{job: job, done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(task.done)
		task.outcome = d.runner.Run(d.base, job)
	}()
	d.logger.Debug("job submitted", zap.String("job_id", job.ID))
	return task, nil
}

// Shutdown stops accepting jobs and waits for in-flight ones until ctx ends.
// Jobs still running at that point are canceled and abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn("shutdown abandoned in-flight jobs")
		return ctx.Err()
	}
}
