// internal/browser/webdriver/session.go
package webdriver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/shim"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

// Name identifies this backend in logs and results.
const Name = config.BackendFirefox

// Session drives Firefox through a local geckodriver. WebDriver calls block and take
// no context, so the context is checked before every call.
type Session struct {
	service *selenium.Service
	wd      selenium.WebDriver
	logger  *zap.Logger

	closeOnce sync.Once
}

var _ schemas.Session = (*Session)(nil)

// Capabilities builds the W3C capabilities for Firefox.
func Capabilities(cfg *config.Config) selenium.Capabilities {
	args := []string{
		fmt.Sprintf("--width=%d", cfg.Browser.Width),
		fmt.Sprintf("--height=%d", cfg.Browser.Height),
	}
	if cfg.Headless {
		args = append(args, "-headless")
	}
	args = append(args, cfg.Browser.Args...)

	firefoxOptions := map[string]interface{}{"args": args}
	if cfg.Browser.Binary != "" {
		firefoxOptions["binary"] = cfg.Browser.Binary
	}
	if cfg.Browser.UserAgent != "" {
		firefoxOptions["prefs"] = map[string]interface{}{
			"general.useragent.override": cfg.Browser.UserAgent,
		}
	}

	return selenium.Capabilities{
		"browserName":             "firefox",
		"moz:firefoxOptions":      firefoxOptions,
		"unhandledPromptBehavior": "accept",
	}
}

// New starts geckodriver on the configured port and opens a Firefox session.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("webdriver")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	service, err := selenium.NewGeckoDriverService(cfg.Browser.DriverPath, cfg.Browser.DriverPort)
	if err != nil {
		return nil, schemas.NewProbeError("start geckodriver", schemas.ErrDriverLaunch, err)
	}

	wd, err := selenium.NewRemote(Capabilities(cfg), fmt.Sprintf("http://localhost:%d", cfg.Browser.DriverPort))
	if err != nil {
		_ = service.Stop()
		return nil, schemas.NewProbeError("open firefox", schemas.ErrDriverLaunch, err)
	}

	if err := wd.SetPageLoadTimeout(cfg.Browser.NavigationTimeoutDuration()); err != nil {
		logger.Warn("Failed to set page load timeout.", zap.Error(err))
	}

	logger.Debug("Firefox session started.", zap.Int("driver_port", cfg.Browser.DriverPort))
	return &Session{service: service, wd: wd, logger: logger}, nil
}

func (s *Session) Backend() string { return Name }

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	if err := s.wd.Get(url); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	return nil
}

func (s *Session) PageText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := s.wd.ExecuteScript("return "+shim.PageTextExpression+";", nil)
	if err != nil {
		return "", schemas.NewProbeError("page text", schemas.ErrElementNotFound, err)
	}
	text, _ := res.(string)
	return text, nil
}

func (s *Session) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, err := strategy(loc)
	if err != nil {
		return nil, err
	}
	found, err := s.wd.FindElements(by, loc.Query)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, classify("find "+loc.String(), err)
	}
	return s.wrap(found), nil
}

func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.wd.ExecuteScript(script, nil); err != nil {
		return schemas.NewProbeError("execute script", schemas.ErrNotInteractable, err)
	}
	return nil
}

// Close ends the WebDriver session and stops geckodriver.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if qerr := s.wd.Quit(); qerr != nil {
			err = fmt.Errorf("failed to quit firefox: %w", qerr)
		}
		if serr := s.service.Stop(); serr != nil && err == nil {
			err = fmt.Errorf("failed to stop geckodriver: %w", serr)
		}
		s.logger.Debug("Firefox session closed.")
	})
	return err
}

func (s *Session) wrap(found []selenium.WebElement) []schemas.Element {
	elements := make([]schemas.Element, 0, len(found))
	for _, we := range found {
		elements = append(elements, &element{session: s, we: we})
	}
	return elements
}

func strategy(loc schemas.Locator) (string, error) {
	switch loc.Kind {
	case schemas.ByCSS:
		return selenium.ByCSSSelector, nil
	case schemas.ByXPath:
		return selenium.ByXPATH, nil
	case schemas.ByTag:
		return selenium.ByTagName, nil
	default:
		return "", schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, nil)
	}
}

func isNoSuchElement(err error) bool {
	return strings.Contains(err.Error(), "no such element")
}

// classify maps WebDriver error codes onto the probe error taxonomy.
func classify(op string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "stale element reference") || isNoSuchElement(err) {
		return schemas.NewProbeError(op, schemas.ErrElementNotFound, err)
	}
	return schemas.NewProbeError(op, schemas.ErrNotInteractable, err)
}

type element struct {
	session *Session
	we      selenium.WebElement
}

var _ schemas.Element = (*element)(nil)

// script runs an element fragment with `el` bound to the first argument.
func (e *element) script(ctx context.Context, op, body string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.session.wd.ExecuteScript("var el = arguments[0];\n"+body, []interface{}{e.we})
	if err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	res, err := e.script(ctx, "attribute "+name, shim.AttributeBody(name))
	if err != nil {
		return "", err
	}
	value, _ := res.(string)
	return value, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	if err != nil {
		return "", classify("text", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	displayed, err := e.we.IsDisplayed()
	if err != nil {
		return false, classify("visible", err)
	}
	return displayed, nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.we.Clear(); err != nil {
		return classify("clear", err)
	}
	if err := e.we.SendKeys(value); err != nil {
		return classify("fill", err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.we.Click(); err != nil {
		return classify("click", err)
	}
	return nil
}

func (e *element) ScriptClick(ctx context.Context) error {
	_, err := e.script(ctx, "script click", shim.ClickBody)
	return err
}

func (e *element) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.we.Submit(); err != nil {
		return classify("submit", err)
	}
	return nil
}

func (e *element) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, err := strategy(loc)
	if err != nil {
		return nil, err
	}
	found, err := e.we.FindElements(by, loc.Query)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, classify("find "+loc.String(), err)
	}
	return e.session.wrap(found), nil
}
