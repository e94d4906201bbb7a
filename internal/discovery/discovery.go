// internal/discovery/discovery.go
//
// Package discovery holds the DOM heuristics used by a signup attempt: confirmation
// detection, cookie banner dismissal, email input discovery and submit button
// location. Every probe works through schemas.Session, so the same heuristics run
// on any backend.
package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Keywords matched against an input's combined type/name/id/placeholder/aria-label.
var EmailKeywords = []string{"email", "newsletter", "subscribe", "signup", "join"}

// Keywords matched against a button's value and text on the page-wide search.
var SubmitKeywords = []string{"subscribe", "sign", "join", "submit", "get"}

// XPath queries used by the submit button locator.
const (
	EnclosingFormXPath = "./ancestor::form[1]"
	FormButtonsXPath   = ".//button|.//input[@type='submit']"
	PageButtonsXPath   = "//button|//input[@type='submit']"
)

// Timings groups the fixed waits of the probes.
type Timings struct {
	// PollInterval is the cadence of every polling loop.
	PollInterval time.Duration
	// CookieClickWait is the pause after a cookie banner button was clicked.
	CookieClickWait time.Duration
}

// DefaultTimings returns the production cadence.
func DefaultTimings() Timings {
	return Timings{
		PollInterval:    time.Second,
		CookieClickWait: 500 * time.Millisecond,
	}
}

// Prober runs the heuristics. It holds no per-page state and can be reused across
// sessions, one call at a time.
type Prober struct {
	logger  *zap.Logger
	timings Timings
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimings overrides the default waits. Tests use this to run fast.
func WithTimings(t Timings) Option {
	return func(p *Prober) {
		p.timings = t
	}
}

// New creates a Prober.
func New(logger *zap.Logger, opts ...Option) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Prober{
		logger:  logger.Named("discovery"),
		timings: DefaultTimings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// poll calls probe until it reports done or timeout elapses. probe always runs at
// least once. It returns false on timeout or cancellation.
func (p *Prober) poll(ctx context.Context, timeout time.Duration, probe func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if probe() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			return false
		}
		wait := p.timings.PollInterval
		if remaining < wait {
			wait = remaining
		}
		if err := Sleep(ctx, wait); err != nil {
			return false
		}
	}
}
