// internal/browser/rodbrowser/session.go
package rodbrowser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/shim"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

// Name identifies this backend in logs and results.
const Name = config.BackendRod

const interactionTimeout = 5 * time.Second

// Session drives a Chromium page through go-rod.
type Session struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	logger     *zap.Logger
	navTimeout time.Duration

	closeOnce sync.Once
}

var _ schemas.Session = (*Session)(nil)

// NewLauncher configures the rod launcher for cfg. rod downloads a Chromium build
// when no binary is configured or found on the system.
func NewLauncher(ctx context.Context, cfg *config.Config) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Browser.Width, cfg.Browser.Height))

	if cfg.Browser.Binary != "" {
		l = l.Bin(cfg.Browser.Binary)
	} else if path, found := launcher.LookPath(); found {
		l = l.Bin(path)
	}

	for _, arg := range cfg.Browser.Args {
		parts := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
		if parts[0] == "" {
			continue
		}
		l = l.Set(flags.Flag(parts[0]), parts[1:]...)
	}
	return l
}

// New launches the browser and opens a blank page.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("rod")

	l := NewLauncher(ctx, cfg)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, schemas.NewProbeError("launch chromium", schemas.ErrDriverLaunch, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, schemas.NewProbeError("connect chromium", schemas.ErrDriverLaunch, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, schemas.NewProbeError("open page", schemas.ErrDriverLaunch, err)
	}

	if cfg.Browser.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.Browser.UserAgent}); err != nil {
			logger.Warn("Failed to override user agent.", zap.Error(err))
		}
	}

	// Dialogs block the renderer until answered; accept them so the flow continues.
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		logger.Debug("Accepting JavaScript dialog.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(page); err != nil {
			logger.Debug("Failed to handle dialog.", zap.Error(err))
		}
	})()

	logger.Debug("Rod session started.", zap.String("control_url", controlURL))
	return &Session{
		launcher:   l,
		browser:    browser,
		page:       page,
		logger:     logger,
		navTimeout: cfg.Browser.NavigationTimeoutDuration(),
	}, nil
}

func (s *Session) Backend() string { return Name }

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.navTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	if err := p.WaitLoad(); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	return nil
}

func (s *Session) PageText(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval("() => " + shim.PageTextExpression)
	if err != nil {
		return "", schemas.NewProbeError("page text", schemas.ErrElementNotFound, err)
	}
	return res.Value.Str(), nil
}

func (s *Session) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	p := s.page.Context(ctx)

	var (
		found rod.Elements
		err   error
	)
	switch loc.Kind {
	case schemas.ByCSS, schemas.ByTag:
		found, err = p.Elements(loc.Query)
	case schemas.ByXPath:
		found, err = p.ElementsX(loc.Query)
	default:
		return nil, schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, nil)
	}
	if err != nil {
		return nil, classify("find "+loc.String(), err)
	}
	return wrap(found), nil
}

func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	if _, err := s.page.Context(ctx).Eval(fmt.Sprintf("() => { %s }", script)); err != nil {
		return schemas.NewProbeError("execute script", schemas.ErrNotInteractable, err)
	}
	return nil
}

// Close shuts the browser and removes the temporary profile.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if cerr := s.browser.Close(); cerr != nil {
			err = fmt.Errorf("failed to close chromium: %w", cerr)
			s.launcher.Kill()
		}
		s.launcher.Cleanup()
		s.logger.Debug("Rod session closed.")
	})
	return err
}

func wrap(found rod.Elements) []schemas.Element {
	elements := make([]schemas.Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &element{el: el})
	}
	return elements
}

// classify maps rod and CDP failures onto the probe error taxonomy.
func classify(op string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Could not find node") ||
		strings.Contains(msg, "Cannot find context") ||
		strings.Contains(msg, "Node is detached") ||
		strings.Contains(msg, "Could not find object") {
		return schemas.NewProbeError(op, schemas.ErrElementNotFound, err)
	}
	return schemas.NewProbeError(op, schemas.ErrNotInteractable, err)
}

type element struct {
	el *rod.Element
}

var _ schemas.Element = (*element)(nil)

// eval runs an element fragment with `el` bound to the remote object.
func (e *element) eval(ctx context.Context, op, body string) (*proto.RuntimeRemoteObject, error) {
	res, err := e.el.Context(ctx).Eval(fmt.Sprintf("() => { const el = this; %s }", body))
	if err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", classify("attribute "+name, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, "text", shim.TextBody)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, "visible", shim.VisibleBody)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Fill clears the field and types value. Input waits for the element to be visible,
// enabled and writable.
func (e *element) Fill(ctx context.Context, value string) error {
	if _, err := e.eval(ctx, "clear", shim.ClearBody); err != nil {
		return err
	}
	el := e.el.Context(ctx).Timeout(interactionTimeout)
	defer el.CancelTimeout()
	if err := el.Input(value); err != nil {
		return classify("fill", err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	el := e.el.Context(ctx).Timeout(interactionTimeout)
	defer el.CancelTimeout()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return classify("click", err)
	}
	return nil
}

func (e *element) ScriptClick(ctx context.Context) error {
	_, err := e.eval(ctx, "script click", shim.ClickBody)
	return err
}

func (e *element) Submit(ctx context.Context) error {
	_, err := e.eval(ctx, "submit", shim.SubmitBody)
	return err
}

func (e *element) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	el := e.el.Context(ctx)

	var (
		found rod.Elements
		err   error
	)
	switch loc.Kind {
	case schemas.ByCSS, schemas.ByTag:
		found, err = el.Elements(loc.Query)
	case schemas.ByXPath:
		found, err = el.ElementsX(loc.Query)
	default:
		return nil, schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, nil)
	}
	if err != nil {
		return nil, classify("find "+loc.String(), err)
	}
	return wrap(found), nil
}
