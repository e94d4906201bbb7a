// File: internal/orchestrator/orchestrator.go
// Description: Runs one signup attempt against one URL. It composes the discovery
// heuristics into two strategies (configured selectors, then heuristic candidates)
// and turns every failure into a reason code instead of an error.

package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/shim"
	"github.com/xkilldash9x/signup-cli/internal/config"
	"github.com/xkilldash9x/signup-cli/internal/discovery"
)

// Timings groups the fixed waits of an attempt.
type Timings struct {
	// Settle is the pause after navigation before anything is probed.
	Settle time.Duration
	// ScrollPauses follow each statement of the scroll sequence.
	ScrollPauses []time.Duration
	// SelectorConfirmTimeout bounds confirmation after a configured-selector submit.
	SelectorConfirmTimeout time.Duration
}

// DefaultTimings returns the production waits.
func DefaultTimings() Timings {
	return Timings{
		Settle: 2 * time.Second,
		ScrollPauses: []time.Duration{
			800 * time.Millisecond,
			800 * time.Millisecond,
			time.Second,
			500 * time.Millisecond,
		},
		SelectorConfirmTimeout: 7 * time.Second,
	}
}

// Orchestrator performs signup attempts. It is stateless between calls; the session
// is lent to it by the caller for the duration of Attempt.
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	prober  *discovery.Prober
	timings Timings
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimings overrides the default waits.
func WithTimings(t Timings) Option {
	return func(o *Orchestrator) {
		o.timings = t
	}
}

// New creates an Orchestrator.
func New(cfg *config.Config, logger *zap.Logger, prober *discovery.Prober, opts ...Option) (*Orchestrator, error) {
	if cfg == nil || logger == nil || prober == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		prober:  prober,
		timings: DefaultTimings(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Attempt tries to sign email up on url. It never returns an error: navigation
// failures, missing inputs and missing confirmations are all reported through the
// result's reason, and a panic inside a backend becomes an "exception: " reason.
func (o *Orchestrator) Attempt(ctx context.Context, sess schemas.Session, url, email string) (result schemas.AttemptResult) {
	logger := o.logger.With(zap.String("url", url))

	// Installed before the first session call: Backend() may panic too.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic during attempt.",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			result = failed(fmt.Sprintf("%s%v", schemas.ReasonExceptionPrefix, r))
		}
	}()
	logger = logger.With(zap.String("backend", sess.Backend()))

	// 1. Navigate.
	if err := sess.Navigate(ctx, url); err != nil {
		logger.Debug("Navigation failed.", zap.Error(err))
		return failed(schemas.ReasonNavPrefix + err.Error())
	}

	// 2. Let the page settle and surface any lazily loaded popups.
	o.preparePage(ctx, sess, logger)

	// 3. Strategy A: configured selectors.
	if res, ok := o.trySelectors(ctx, sess, email, logger); ok {
		return res
	}
	if err := ctx.Err(); err != nil {
		return failed(schemas.ReasonExceptionPrefix + err.Error())
	}

	// 4. Strategy B: heuristic candidates.
	return o.tryCandidates(ctx, sess, email, logger)
}

func failed(reason string) schemas.AttemptResult {
	return schemas.AttemptResult{Success: false, Reason: reason}
}

func succeeded(reason string) schemas.AttemptResult {
	return schemas.AttemptResult{Success: true, Reason: reason}
}

// preparePage is best-effort: none of its failures end the attempt.
func (o *Orchestrator) preparePage(ctx context.Context, sess schemas.Session, logger *zap.Logger) {
	if err := discovery.Sleep(ctx, o.timings.Settle); err != nil {
		return
	}
	o.prober.DismissCookieBanner(ctx, sess, o.cfg.CookieAcceptXPaths)

	for i, stmt := range shim.ScrollSequence {
		if err := sess.ExecuteScript(ctx, stmt); err != nil {
			logger.Debug("Scroll skipped.", zap.Error(err))
			return
		}
		if i < len(o.timings.ScrollPauses) {
			if err := discovery.Sleep(ctx, o.timings.ScrollPauses[i]); err != nil {
				return
			}
		}
	}
}

// trySelectors runs strategy A. ok is false when it did not confirm a signup.
func (o *Orchestrator) trySelectors(ctx context.Context, sess schemas.Session, email string, logger *zap.Logger) (schemas.AttemptResult, bool) {
	for _, sel := range o.cfg.PopupEmailSelectors {
		inputs, err := sess.FindElements(ctx, schemas.CSS(sel))
		if err != nil {
			logger.Debug("Email selector failed.", zap.String("selector", sel), zap.Error(err))
			continue
		}

		for _, input := range inputs {
			if ctx.Err() != nil {
				return schemas.AttemptResult{}, false
			}
			if visible, err := input.Visible(ctx); err != nil || !visible {
				continue
			}
			if err := input.Fill(ctx, email); err != nil {
				logger.Debug("Could not fill configured input.", zap.String("selector", sel), zap.Error(err))
				continue
			}

			if o.clickConfiguredSubmit(ctx, sess, logger) {
				return succeeded(schemas.ReasonConfigSelectors), true
			}

			if err := input.Submit(ctx); err != nil {
				logger.Debug("Native submit failed.", zap.Error(err))
				continue
			}
			if o.awaitConfirmation(ctx, sess, o.timings.SelectorConfirmTimeout) {
				return succeeded(schemas.ReasonInputSubmit), true
			}
		}
	}
	return schemas.AttemptResult{}, false
}

// clickConfiguredSubmit clicks, per configured submit selector, the first visible
// button that accepts a click and checks for a confirmation after each click.
func (o *Orchestrator) clickConfiguredSubmit(ctx context.Context, sess schemas.Session, logger *zap.Logger) bool {
	for _, sel := range o.cfg.PopupSubmitSelectors {
		buttons, err := sess.FindElements(ctx, schemas.CSS(sel))
		if err != nil {
			continue
		}
		for _, btn := range buttons {
			if visible, err := btn.Visible(ctx); err != nil || !visible {
				continue
			}
			if err := btn.Click(ctx); err != nil {
				logger.Debug("Submit button refused the click.", zap.String("selector", sel), zap.Error(err))
				continue
			}
			if o.awaitConfirmation(ctx, sess, o.timings.SelectorConfirmTimeout) {
				return true
			}
			break
		}
	}
	return false
}

// tryCandidates runs strategy B and always produces the final result.
func (o *Orchestrator) tryCandidates(ctx context.Context, sess schemas.Session, email string, logger *zap.Logger) schemas.AttemptResult {
	candidates := o.prober.FindEmailInputs(ctx, sess, o.cfg.FindTimeoutDuration())
	if len(candidates) == 0 {
		return failed(schemas.ReasonNoEmailInput)
	}
	logger.Debug("Found candidate email inputs.", zap.Int("count", len(candidates)))

	for _, input := range candidates {
		if ctx.Err() != nil {
			break
		}
		if visible, err := input.Visible(ctx); err != nil || !visible {
			continue
		}
		if err := input.Fill(ctx, email); err != nil {
			logger.Debug("Could not fill candidate input.", zap.Error(err))
		}

		if btn, ok := o.prober.FindSubmitNear(ctx, sess, input); ok {
			if err := btn.Click(ctx); err != nil {
				logger.Debug("Click failed, falling back to a script click.", zap.Error(err))
				if err := btn.ScriptClick(ctx); err != nil {
					logger.Debug("Script click failed.", zap.Error(err))
				}
			}
		} else if err := input.Submit(ctx); err != nil {
			logger.Debug("Native submit failed.", zap.Error(err))
		}

		if o.awaitConfirmation(ctx, sess, o.cfg.FindTimeoutDuration()) {
			return succeeded(schemas.ReasonConfirmed)
		}
	}
	return failed(schemas.ReasonNoConfirmation)
}

// awaitConfirmation waits submit_wait, then polls for a confirmation keyword.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, sess schemas.Session, timeout time.Duration) bool {
	if err := discovery.Sleep(ctx, o.cfg.SubmitWaitDuration()); err != nil {
		return false
	}
	return o.prober.DetectConfirmation(ctx, sess, o.cfg.ConfirmationKeywords, timeout)
}
