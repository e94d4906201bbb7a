// internal/browser/open.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/cdp"
	"github.com/xkilldash9x/signup-cli/internal/browser/rodbrowser"
	"github.com/xkilldash9x/signup-cli/internal/browser/static"
	"github.com/xkilldash9x/signup-cli/internal/browser/webdriver"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

// LaunchError reports a backend that could not be started, with what the user can do
// about it. It matches schemas.ErrDriverLaunch with errors.Is.
type LaunchError struct {
	Backend string
	Hint    string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%v (backend %q)\n%s", e.Err, e.Backend, e.Hint)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Open starts the session selected by cfg.Browser.Backend. The caller owns the
// returned session and must Close it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.Session, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")
	backend := cfg.Browser.Backend

	var (
		sess schemas.Session
		err  error
	)
	switch backend {
	case config.BackendChrome:
		sess, err = cdp.New(ctx, cfg, logger)
	case config.BackendRod:
		sess, err = rodbrowser.New(ctx, cfg, logger)
	case config.BackendFirefox:
		sess, err = webdriver.New(ctx, cfg, logger)
	case config.BackendStatic:
		sess = static.New(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown browser backend %q", backend)
	}
	if err != nil {
		if !errors.Is(err, schemas.ErrDriverLaunch) {
			err = schemas.NewProbeError("open "+backend, schemas.ErrDriverLaunch, err)
		}
		return nil, &LaunchError{Backend: backend, Hint: Remediation(backend), Err: err}
	}

	logger.Info("Browser session ready.", zap.String("backend", sess.Backend()), zap.Bool("headless", cfg.Headless))
	return sess, nil
}

// Remediation describes how to make backend startable.
func Remediation(backend string) string {
	switch backend {
	case config.BackendChrome:
		return "Install Google Chrome or Chromium, or set browser.binary to its path. " +
			"Alternatively use --backend rod (downloads Chromium) or --backend static."
	case config.BackendRod:
		return "rod could not launch or download Chromium. Check network access or set browser.binary."
	case config.BackendFirefox:
		return "Install Firefox and geckodriver, and point browser.driver_path at geckodriver " +
			"if it is not on PATH. Make sure browser.driver_port is free."
	default:
		return "Run 'signup-cli doctor' to check the selected backend."
	}
}
