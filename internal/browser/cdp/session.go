// internal/browser/cdp/session.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/shim"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

// Name identifies this backend in logs and results.
const Name = config.BackendChrome

// interactionTimeout bounds chromedp actions that wait for a node to become ready.
const interactionTimeout = 5 * time.Second

// Session drives a single Chrome tab over the DevTools protocol.
type Session struct {
	ctx         context.Context // chromedp target context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	navTimeout  time.Duration

	seq       atomic.Uint64
	closeOnce sync.Once
}

var _ schemas.Session = (*Session)(nil)

// ExecOptions assembles the allocator options for the configured browser.
func ExecOptions(cfg *config.Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.Browser.Width, cfg.Browser.Height),
	)

	// DefaultExecAllocatorOptions runs headless; a later flag wins.
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))

	if cfg.Browser.Binary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.Binary))
	}
	if cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Browser.UserAgent))
	}

	// Extra switches are given as "--name=value" or "--name".
	for _, arg := range cfg.Browser.Args {
		parts := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
		if parts[0] == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(parts[0], parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(parts[0], true))
		}
	}
	return opts
}

// New launches Chrome and opens one tab. The browser lives until Close is called or
// ctx is canceled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("cdp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecOptions(cfg)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// An empty Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, schemas.NewProbeError("launch chrome", schemas.ErrDriverLaunch, err)
	}

	// Dialogs block the renderer until answered; accept them so the flow continues.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			logger.Debug("Accepting JavaScript dialog.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
			go func() {
				if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true)); err != nil {
					logger.Debug("Failed to handle dialog.", zap.Error(err))
				}
			}()
		}
	})

	logger.Debug("Chrome session started.", zap.Bool("headless", cfg.Headless))
	return &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		navTimeout:  cfg.Browser.NavigationTimeoutDuration(),
	}, nil
}

func (s *Session) Backend() string { return Name }

// runActions executes chromedp actions against the tab, honoring both the session
// lifetime and the caller's context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	return nil
}

func (s *Session) PageText(ctx context.Context) (string, error) {
	var text string
	if err := s.runActions(ctx, chromedp.Evaluate(shim.PageTextExpression, &text)); err != nil {
		return "", schemas.NewProbeError("page text", schemas.ErrElementNotFound, err)
	}
	return text, nil
}

func (s *Session) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	return s.find(ctx, "", loc)
}

func (s *Session) find(ctx context.Context, scopeRef string, loc schemas.Locator) ([]schemas.Element, error) {
	script, err := shim.FindAndTag(scopeRef, string(loc.Kind), loc.Query, fmt.Sprintf("q%d", s.seq.Add(1)))
	if err != nil {
		return nil, schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, err)
	}

	var refs []string
	if err := s.runActions(ctx, chromedp.Evaluate(script, &refs)); err != nil {
		return nil, classify("find "+loc.String(), err)
	}

	elements := make([]schemas.Element, 0, len(refs))
	for _, ref := range refs {
		elements = append(elements, &element{session: s, ref: ref})
	}
	return elements, nil
}

func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	if err := s.runActions(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return schemas.NewProbeError("execute script", schemas.ErrNotInteractable, err)
	}
	return nil
}

// Close shuts the tab and the browser process. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		// chromedp.Cancel closes the browser gracefully when this context owns it.
		if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("failed to close chrome: %w", cerr)
		}
		s.cancel()
		s.allocCancel()
		s.logger.Debug("Chrome session closed.")
	})
	return err
}

// classify maps a script failure onto the probe error taxonomy.
func classify(op string, err error) error {
	if strings.Contains(err.Error(), "stale element reference") {
		return schemas.NewProbeError(op, schemas.ErrElementNotFound, err)
	}
	return schemas.NewProbeError(op, schemas.ErrNotInteractable, err)
}

// element is a tagged DOM node addressed through its ref attribute.
type element struct {
	session *Session
	ref     string
}

var _ schemas.Element = (*element)(nil)

func (e *element) eval(ctx context.Context, op, body string, res interface{}) error {
	if err := e.session.runActions(ctx, chromedp.Evaluate(shim.OnRef(e.ref, body), res)); err != nil {
		return classify(op, err)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	err := e.eval(ctx, "attribute "+name, shim.AttributeBody(name), &value)
	return value, err
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.eval(ctx, "text", shim.TextBody, &text)
	return text, err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.eval(ctx, "visible", shim.VisibleBody, &visible)
	return visible, err
}

// Fill clears the field and types value with real key events.
func (e *element) Fill(ctx context.Context, value string) error {
	var ok bool
	if err := e.eval(ctx, "clear", shim.ClearBody, &ok); err != nil {
		return err
	}

	typeCtx, cancel := context.WithTimeout(ctx, interactionTimeout)
	defer cancel()
	if err := e.session.runActions(typeCtx, chromedp.SendKeys(shim.SelectorFor(e.ref), value, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return schemas.NewProbeError("fill", schemas.ErrNotInteractable, err)
		}
		e.session.logger.Debug("Key events failed, assigning value directly.", zap.Error(err))
		return e.eval(ctx, "fill", shim.SetValueBody(value), &ok)
	}
	return nil
}

// Click performs a native mouse click at the element's center.
func (e *element) Click(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, interactionTimeout)
	defer cancel()
	if err := e.session.runActions(clickCtx, chromedp.Click(shim.SelectorFor(e.ref), chromedp.ByQuery)); err != nil {
		return schemas.NewProbeError("click", schemas.ErrNotInteractable, err)
	}
	return nil
}

func (e *element) ScriptClick(ctx context.Context) error {
	var ok bool
	return e.eval(ctx, "script click", shim.ClickBody, &ok)
}

func (e *element) Submit(ctx context.Context) error {
	var ok bool
	return e.eval(ctx, "submit", shim.SubmitBody, &ok)
}

func (e *element) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	return e.session.find(ctx, e.ref, loc)
}
