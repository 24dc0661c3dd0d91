// Package ratelimit keeps per-source request budgets on top of
// golang.org/x/time/rate, with exponential backoff after failures.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff defaults.
const (
	DefaultBackoffBase  = 100 * time.Millisecond
	DefaultBackoffMax   = 30 * time.Second
	DefaultErrorResetAt = 60 * time.Second
)

// Policy is a per-source request budget: MaxRequests per Window. The whole
// budget may be spent at once, after which tokens refill evenly.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// Limit converts the policy to a token-bucket rate.
func (p Policy) Limit() rate.Limit {
	if p.MaxRequests <= 0 || p.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(p.MaxRequests) / p.Window.Seconds())
}

// SourceState is a snapshot of a source's limiter bookkeeping.
type SourceState struct {
	ConsecutiveErrors int
	LastError         time.Time
	Backoff           time.Duration
	Tokens            float64
}

type sourceLimiter struct {
	limiter *rate.Limiter

	mu        sync.Mutex
	errors    int
	lastError time.Time
}

// Controller keeps an independent limiter and error counter per source and
// imposes an exponential backoff after reported failures.
type Controller struct {
	mu      sync.RWMutex
	sources map[string]*sourceLimiter

	defaultPolicy Policy
	base          time.Duration
	max           time.Duration
	resetAfter    time.Duration
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBackoff overrides the backoff base, ceiling and error-reset window.
func WithBackoff(base, max, resetAfter time.Duration) ControllerOption {
	return func(c *Controller) {
		c.base, c.max, c.resetAfter = base, max, resetAfter
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithSleeper overrides how backoff waits are performed.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ControllerOption {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a controller. Sources without an explicit policy use
// defaultPolicy on first use.
func NewController(defaultPolicy Policy, opts ...ControllerOption) *Controller {
	c := &Controller{
		sources:       make(map[string]*sourceLimiter),
		defaultPolicy: defaultPolicy,
		base:          DefaultBackoffBase,
		max:           DefaultBackoffMax,
		resetAfter:    DefaultErrorResetAt,
		now:           time.Now,
		sleep:         sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure sets the policy for source, replacing any previous one.
func (c *Controller) Configure(source string, p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[source] = &sourceLimiter{limiter: newPolicyLimiter(p)}
}

// newPolicyLimiter allows a burst of the full budget, at least one.
func newPolicyLimiter(p Policy) *rate.Limiter {
	burst := p.MaxRequests
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(p.Limit(), burst)
}

func (c *Controller) source(name string) *sourceLimiter {
	c.mu.RLock()
	s, ok := c.sources[name]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.sources[name]; ok {
		return s
	}
	s = &sourceLimiter{limiter: newPolicyLimiter(c.defaultPolicy)}
	c.sources[name] = s
	return s
}

// Acquire blocks until source may issue a request: first any outstanding
// backoff, then a token from its bucket. It only fails when ctx ends.
func (c *Controller) Acquire(ctx context.Context, source string) error {
	s := c.source(source)

	if wait := c.remainingBackoff(s); wait > 0 {
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return s.limiter.Wait(ctx)
}

// ReportFailure records a failed request for source.
func (c *Controller) ReportFailure(source string) {
	s := c.source(source)
	now := c.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	c.expireLocked(s, now)
	s.errors++
	s.lastError = now
}

// ReportSuccess is a no-op for the counter: only a quiet period of
// resetAfter clears it.
func (c *Controller) ReportSuccess(source string) {
	s := c.source(source)

	s.mu.Lock()
	defer s.mu.Unlock()
	c.expireLocked(s, c.now())
}

// Backoff returns the delay currently imposed on source after its last failure.
func (c *Controller) Backoff(source string) time.Duration {
	s := c.source(source)

	s.mu.Lock()
	defer s.mu.Unlock()
	c.expireLocked(s, c.now())
	return c.delayFor(s.errors)
}

// State returns a snapshot for source.
func (c *Controller) State(source string) SourceState {
	s := c.source(source)

	s.mu.Lock()
	defer s.mu.Unlock()
	c.expireLocked(s, c.now())
	return SourceState{
		ConsecutiveErrors: s.errors,
		LastError:         s.lastError,
		Backoff:           c.delayFor(s.errors),
		Tokens:            s.limiter.Tokens(),
	}
}

func (c *Controller) remainingBackoff(s *sourceLimiter) time.Duration {
	now := c.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	c.expireLocked(s, now)
	if s.errors == 0 {
		return 0
	}
	return c.delayFor(s.errors) - now.Sub(s.lastError)
}

func (c *Controller) expireLocked(s *sourceLimiter, now time.Time) {
	if s.errors > 0 && now.Sub(s.lastError) >= c.resetAfter {
		s.errors = 0
	}
}

// delayFor returns min(2^n * base, max), and zero when n is zero.
func (c *Controller) delayFor(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	if n >= 62 {
		return c.max
	}
	d := float64(c.base) * math.Pow(2, float64(n))
	if d >= float64(c.max) {
		return c.max
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
