package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func seoul(t *testing.T) *time.Location {
	t.Helper()
	return LoadLocation("Asia/Seoul")
}

func newTestGate(t *testing.T, start time.Time) (*Gate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: start}
	g := New(Config{
		MinInterval:       30 * time.Second,
		CooldownThreshold: time.Hour,
		Location:          seoul(t),
	}, clock)
	return g, clock
}

func TestGateConcurrentAdmissionsAdmitExactlyOne(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))

	const callers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		paced    int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			permit, err := g.Admit(context.Background())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
				permit.Release()
			case errors.Is(err, ErrPacing):
				paced++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, admitted)
	require.Equal(t, callers-1, paced)
}

func TestGatePermitHoldsExclusiveSection(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)

	// Even once pacing would allow it, a second caller waits for the permit.
	clock.Advance(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = g.Admit(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	permit.Release()
	permit.Release()

	second, err := g.Admit(context.Background())
	require.NoError(t, err)
	second.Release()
}

func TestGatePacing(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()

	clock.Advance(29 * time.Second)
	_, err = g.Admit(context.Background())
	require.ErrorIs(t, err, ErrPacing)

	state, err := g.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)), state.LastCall)

	clock.Advance(time.Second)
	permit, err = g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()
}

func TestGateShortThrottleDoesNotCoolDown(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	require.False(t, permit.Throttled(20*time.Second))
	permit.Release()

	clock.Advance(31 * time.Second)
	permit, err = g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()
}

func TestGateLongThrottleStartsCooldown(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	require.True(t, permit.Throttled(2*time.Hour))
	permit.Release()
	require.False(t, permit.Throttled(3*time.Hour), "released permit must not touch state")

	clock.Advance(30 * time.Minute)
	_, err = g.Admit(context.Background())
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, 90*time.Minute, cooldown.Remaining)

	clock.Advance(91 * time.Minute)
	permit, err = g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()
}

func TestGateCooldownClearsOnNextDay(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(t, time.Date(2025, 3, 3, 23, 50, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	require.True(t, permit.Throttled(5*time.Hour))
	permit.Release()

	clock.Advance(5 * time.Minute)
	_, err = g.Admit(context.Background())
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)

	// 00:05 the next day in Seoul, well inside the 5h wait.
	clock.Advance(10 * time.Minute)
	permit, err = g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()

	state, err := g.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, state.CooldownUntil.IsZero())
	require.Empty(t, state.CooldownDay)
}

func TestGateDayUsesConfiguredZone(t *testing.T) {
	t.Parallel()

	// 15:30 UTC is 00:30 the following day in Seoul.
	g, clock := newTestGate(t, time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	require.True(t, permit.Throttled(4*time.Hour))
	permit.Release()

	clock.Advance(90 * time.Minute)
	permit, err = g.Admit(context.Background())
	require.NoError(t, err)
	permit.Release()
}

func TestGateAdmitHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(t, time.Date(2025, 3, 3, 10, 0, 0, 0, seoul(t)))
	permit, err := g.Admit(context.Background())
	require.NoError(t, err)
	defer permit.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Admit(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCooldownErrorMessage(t *testing.T) {
	t.Parallel()

	err := &CooldownError{Remaining: 90*time.Minute + 400*time.Millisecond}
	require.Equal(t, "upstream cooldown active for 1h30m0s", err.Error())
}

func TestGateMinInterval(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	require.Equal(t, 45*time.Second, New(Config{MinInterval: 45 * time.Second}, clock).MinInterval())
	require.Equal(t, 30*time.Second, New(Config{}, clock).MinInterval())
	require.Zero(t, New(Config{MinInterval: -1}, clock).MinInterval())
}
