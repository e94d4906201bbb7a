// internal/engine/runner.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/config"
	"github.com/xkilldash9x/signup-cli/internal/discovery"
)

// -- Interfaces for Dependency Inversion --

// Attempter runs one signup attempt. *orchestrator.Orchestrator satisfies it.
type Attempter interface {
	Attempt(ctx context.Context, sess schemas.Session, url, email string) schemas.AttemptResult
}

// Store persists the final outcome of each URL.
type Store interface {
	PersistOutcome(ctx context.Context, outcome schemas.Outcome) error
}

// Reporter receives per-URL progress and the end-of-run summary.
type Reporter interface {
	Progress(index, total int, outcome schemas.Outcome)
	Summary(summary schemas.Summary) error
}

// Runner processes a target list strictly sequentially with a single session.
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	session   schemas.Session
	attempter Attempter
	store     Store
	reporter  Reporter
	now       func() time.Time
}

// New creates a Runner. The session is owned by the caller and stays open after Run.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	session schemas.Session,
	attempter Attempter,
	store Store,
	reporter Reporter,
) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if attempter == nil {
		return nil, errors.New("attempter cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New("reporter cannot be nil")
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger.Named("runner"),
		session:   session,
		attempter: attempter,
		store:     store,
		reporter:  reporter,
		now:       time.Now,
	}, nil
}

// Run signs email up on every URL in order. Each URL gets up to retries+1 attempts
// and exactly one persisted outcome. When ctx is canceled the run stops between
// steps; the URL being processed at that moment gets no outcome, and the partial
// summary is returned together with the context's error.
func (r *Runner) Run(ctx context.Context, urls []string, email string) (schemas.Summary, error) {
	summary := schemas.Summary{
		RunID:     uuid.New().String(),
		Total:     len(urls),
		StartedAt: r.now(),
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("Starting batch run.",
		zap.Int("targets", len(urls)),
		zap.String("backend", r.session.Backend()),
		zap.Int("retries", r.cfg.Retries),
	)

	var runErr error
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		outcome, err := r.process(ctx, logger, url, email)
		if err != nil {
			runErr = err
			break
		}

		if err := r.store.PersistOutcome(ctx, outcome); err != nil {
			logger.Error("Failed to persist outcome.", zap.String("url", url), zap.Error(err))
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Result == schemas.ResultSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.FailedURLs = append(summary.FailedURLs, url)
		}
		r.reporter.Progress(i+1, len(urls), outcome)
	}

	summary.FinishedAt = r.now()
	if err := r.reporter.Summary(summary); err != nil {
		logger.Error("Failed to render summary.", zap.Error(err))
	}

	logger.Info("Batch run finished.",
		zap.Int("processed", len(summary.Outcomes)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, runErr
}

// process runs the retry loop for one URL. It only returns an error when ctx ended
// before the URL reached a verdict.
func (r *Runner) process(ctx context.Context, logger *zap.Logger, url, email string) (schemas.Outcome, error) {
	maxAttempts := r.cfg.Retries + 1
	var (
		res      schemas.AttemptResult
		attempts int
	)

	for attempts < maxAttempts {
		attempts++
		res = r.attempt(ctx, logger, url, email)
		if res.Success {
			logger.Info("Signup confirmed.", zap.String("url", url), zap.String("reason", res.Reason), zap.Int("attempt", attempts))
			break
		}
		if err := ctx.Err(); err != nil {
			return schemas.Outcome{}, err
		}

		logger.Info("Attempt not successful.",
			zap.String("url", url),
			zap.String("reason", res.Reason),
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", maxAttempts),
		)
		if attempts < maxAttempts {
			if err := discovery.Sleep(ctx, r.cfg.RetryDelayDuration()); err != nil {
				return schemas.Outcome{}, err
			}
		}
	}

	outcome := schemas.Outcome{
		URL:       url,
		Email:     email,
		Result:    schemas.ResultFailed,
		Reason:    res.Reason,
		Attempts:  attempts,
		Timestamp: r.now(),
	}
	if res.Success {
		outcome.Result = schemas.ResultSuccess
	}
	return outcome, nil
}

// attempt calls the attempter. A panic becomes a failed attempt with an
// "exception: " reason.
func (r *Runner) attempt(ctx context.Context, logger *zap.Logger, url, email string) (res schemas.AttemptResult) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Recovered from panic in attempter.",
				zap.String("url", url),
				zap.Any("panic", p),
				zap.String("stack", string(debug.Stack())),
			)
			res = schemas.AttemptResult{Reason: fmt.Sprintf("%s%v", schemas.ReasonExceptionPrefix, p)}
		}
	}()
	return r.attempter.Attempt(ctx, r.session, url, email)
}
