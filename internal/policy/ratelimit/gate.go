// Package ratelimit guards the metered upstream model API: at most one call
// in flight, a minimum spacing between admissions, and a same-day cooldown
// after a long upstream throttle.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const (
	defaultMinInterval       = 30 * time.Second
	defaultCooldownThreshold = time.Hour
	defaultZone              = "Asia/Seoul"
	dayLayout                = "2006-01-02"
)

// ErrPacing is returned when the previous admission is too recent.
var ErrPacing = errors.New("upstream call admitted too recently")

// CooldownError is returned while a same-day cooldown is active.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("upstream cooldown active for %s", e.Remaining.Round(time.Second))
}

// Config holds gate tuning.
type Config struct {
	MinInterval       time.Duration
	CooldownThreshold time.Duration
	// Location decides what "today" means for cooldown expiry.
	Location *time.Location
}

// Gate is the process-wide admission gate. State fields are only touched
// while the semaphore is held.
type Gate struct {
	sem       *semaphore.Weighted
	pacer     *rate.Limiter
	interval  time.Duration
	clock     notice.Clock
	threshold time.Duration
	loc       *time.Location

	lastCall      time.Time
	cooldownUntil time.Time
	cooldownDay   string
}

// New creates a Gate. Zero config values fall back to 30s pacing, a 1h
// cooldown threshold and the Asia/Seoul calendar.
func New(cfg Config, clock notice.Clock) *Gate {
	interval := cfg.MinInterval
	if interval == 0 {
		interval = defaultMinInterval
	}
	limit := rate.Every(interval)
	if interval < 0 {
		limit = rate.Inf
	}
	threshold := cfg.CooldownThreshold
	if threshold <= 0 {
		threshold = defaultCooldownThreshold
	}
	loc := cfg.Location
	if loc == nil {
		loc = LoadLocation(defaultZone)
	}
	return &Gate{
		sem:       semaphore.NewWeighted(1),
		pacer:     rate.NewLimiter(limit, 1),
		interval:  interval,
		clock:     clock,
		threshold: threshold,
		loc:       loc,
	}
}

// LoadLocation resolves a zone name, falling back to a fixed +09:00 zone when
// the tz database is unavailable.
func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// Admit waits for the exclusive section and then decides on fresh state. On
// success the returned Permit holds the section until Release.
func (g *Gate) Admit(ctx context.Context) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire gate: %w", err)
	}

	now := g.clock.Now()
	today := now.In(g.loc).Format(dayLayout)
	if g.cooldownDay != "" && g.cooldownDay != today {
		g.cooldownUntil = time.Time{}
		g.cooldownDay = ""
		metrics.SetGateCooldown(false)
	}

	if now.Before(g.cooldownUntil) {
		remaining := g.cooldownUntil.Sub(now)
		g.sem.Release(1)
		metrics.ObserveGateDecision("cooldown")
		return nil, &CooldownError{Remaining: remaining}
	}

	if !g.pacer.AllowN(now, 1) {
		g.sem.Release(1)
		metrics.ObserveGateDecision("pacing")
		return nil, ErrPacing
	}

	g.lastCall = now
	metrics.ObserveGateDecision("admitted")
	return &Permit{gate: g}, nil
}

// MinInterval is the spacing enforced between admissions.
func (g *Gate) MinInterval() time.Duration {
	if g.interval < 0 {
		return 0
	}
	return g.interval
}

// Snapshot reports the gate state. It waits for the exclusive section.
func (g *Gate) Snapshot(ctx context.Context) (State, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return State{}, fmt.Errorf("acquire gate: %w", err)
	}
	defer g.sem.Release(1)
	return State{
		LastCall:      g.lastCall,
		CooldownUntil: g.cooldownUntil,
		CooldownDay:   g.cooldownDay,
	}, nil
}

// State is a copy of the gate's mutable fields.
type State struct {
	LastCall      time.Time
	CooldownUntil time.Time
	CooldownDay   string
}

// Permit is an admitted upstream call.
type Permit struct {
	gate *Gate
	mu   sync.Mutex
	done bool
}

// Throttled records an upstream throttle. A wait at or above the cooldown
// threshold starts a cooldown that lasts until now+wait or the end of the
// local day, whichever comes first. It reports whether a cooldown was set.
func (p *Permit) Throttled(wait time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return false
	}
	g := p.gate
	if wait < g.threshold {
		return false
	}
	now := g.clock.Now()
	g.cooldownUntil = now.Add(wait)
	g.cooldownDay = now.In(g.loc).Format(dayLayout)
	metrics.SetGateCooldown(true)
	return true
}

// Release frees the exclusive section. Extra calls are no-ops.
func (p *Permit) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	p.gate.sem.Release(1)
}
