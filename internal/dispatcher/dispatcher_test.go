package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

type stubRunner struct {
	release chan struct{}
	started chan struct{}
	runs    atomic.Int32
}

func (r *stubRunner) Run(ctx context.Context, job notice.Job) notice.Outcome {
	r.runs.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return notice.Outcome{Kind: notice.OutcomeTimedOut}
		}
	}
	return notice.Delivered("done " + job.ID)
}

func TestSubmitRunsDetachedFromCaller(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	d := New(runner, zap.NewNop())

	task, err := d.Submit(notice.Job{ID: "a"})
	require.NoError(t, err)
	<-runner.started

	select {
	case <-task.Done():
		t.Fatal("task finished before release")
	default:
	}

	close(runner.release)
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}
	require.Equal(t, notice.Delivered("done a"), task.Outcome())
	require.Equal(t, "a", task.Job().ID)
}

func TestShutdownDrainsInFlight(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{release: make(chan struct{}), started: make(chan struct{}, 2)}
	d := New(runner, zap.NewNop())

	t1, err := d.Submit(notice.Job{ID: "1"})
	require.NoError(t, err)
	t2, err := d.Submit(notice.Job{ID: "2"})
	require.NoError(t, err)
	<-runner.started
	<-runner.started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(runner.release)
	}()
	require.NoError(t, d.Shutdown(context.Background()))
	require.Equal(t, notice.OutcomeDelivered, t1.Outcome().Kind)
	require.Equal(t, notice.OutcomeDelivered, t2.Outcome().Kind)

	_, err = d.Submit(notice.Job{ID: "3"})
	require.ErrorIs(t, err, ErrClosed)
	require.EqualValues(t, 2, runner.runs.Load())
}

func TestShutdownGivesUpAtDeadline(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	d := New(runner, zap.NewNop())

	task, err := d.Submit(notice.Job{ID: "slow"})
	require.NoError(t, err)
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	// Abandoned jobs see their base context canceled.
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("abandoned task never observed cancellation")
	}
	require.Equal(t, notice.OutcomeTimedOut, task.Outcome().Kind)
}
