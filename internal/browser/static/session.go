// internal/browser/static/session.go
//
// Package static implements a script-less backend on top of plain HTTP. Pages are
// fetched with resty and parsed into an html.Node tree; CSS queries go through
// goquery and XPath through htmlquery. Form submission is emulated by encoding the
// form's successful controls. Nothing runs JavaScript, so popups injected by scripts
// are never seen.
package static

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/go-resty/resty/v2"
	"github.com/jaytaylor/html2text"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

// Name identifies this backend in logs and results.
const Name = config.BackendStatic

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) signup-cli"

// Session holds the currently loaded document.
type Session struct {
	client *resty.Client
	logger *zap.Logger

	mu      sync.RWMutex
	doc     *html.Node
	pageURL *url.URL
	// generation increments on every document load; elements from older
	// generations are stale.
	generation uint64
}

var _ schemas.Session = (*Session)(nil)

// NewClient builds the HTTP client used by the session. The default resty client
// keeps a cookie jar, so cookies set by one page are sent with the form post.
func NewClient(cfg *config.Config) *resty.Client {
	ua := cfg.Browser.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return resty.New().
		SetTimeout(cfg.Browser.NavigationTimeoutDuration()).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("user-agent", ua).
		SetHeader("accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
}

// New creates a session. It never launches anything, so it cannot fail.
func New(cfg *config.Config, logger *zap.Logger) *Session {
	return NewWithClient(NewClient(cfg), logger)
}

// NewWithClient creates a session around an existing client (tests use this to
// point at an httptest server).
func NewWithClient(client *resty.Client, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{client: client, logger: logger.Named("static")}
}

func (s *Session) Backend() string { return Name }

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	res, err := s.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	if err := s.load(res); err != nil {
		return schemas.NewProbeError("navigate", schemas.ErrNavigation, err)
	}
	return nil
}

// load replaces the current document with the response body. Error statuses are
// rendered like a browser would render them.
func (s *Session) load(res *resty.Response) error {
	doc, err := html.Parse(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}

	var final *url.URL
	if raw := res.RawResponse; raw != nil && raw.Request != nil {
		final = raw.Request.URL
	} else if res.Request != nil {
		final, _ = url.Parse(res.Request.URL)
	}

	s.mu.Lock()
	s.doc = doc
	s.pageURL = final
	s.generation++
	s.mu.Unlock()

	s.logger.Debug("Loaded document.",
		zap.Stringer("url", final),
		zap.Int("status", res.StatusCode()),
		zap.Int("bytes", len(res.Body())),
	)
	return nil
}

func (s *Session) current() (*html.Node, *url.URL, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, s.pageURL, s.generation
}

// PageText renders the visible text of the document.
func (s *Session) PageText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, _, _ := s.current()
	if doc == nil {
		return "", nil
	}

	visible, err := visibleCopy(doc)
	if err != nil {
		return "", schemas.NewProbeError("page text", schemas.ErrElementNotFound, err)
	}
	text, err := html2text.FromHTMLNode(visible, html2text.Options{OmitLinks: true})
	if err != nil {
		return "", schemas.NewProbeError("page text", schemas.ErrElementNotFound, err)
	}
	return text, nil
}

// visibleCopy clones doc and drops every subtree a browser would not render.
func visibleCopy(doc *html.Node) (*html.Node, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	clone, err := html.Parse(&buf)
	if err != nil {
		return nil, err
	}

	var prune func(n *html.Node)
	prune = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && hiddenSelf(c) {
				n.RemoveChild(c)
			} else {
				prune(c)
			}
			c = next
		}
	}
	prune(clone)
	return clone, nil
}

func (s *Session) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, _, gen := s.current()
	if doc == nil {
		return nil, nil
	}
	return s.query(doc, gen, loc)
}

func (s *Session) query(scope *html.Node, gen uint64, loc schemas.Locator) ([]schemas.Element, error) {
	var (
		nodes []*html.Node
		err   error
	)
	switch loc.Kind {
	case schemas.ByCSS, schemas.ByTag:
		nodes, err = selectCSS(scope, loc.Query)
	case schemas.ByXPath:
		nodes, err = htmlquery.QueryAll(scope, loc.Query)
	default:
		return nil, schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, nil)
	}
	if err != nil {
		return nil, schemas.NewProbeError("find "+loc.String(), schemas.ErrUnsupported, err)
	}

	elements := make([]schemas.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		elements = append(elements, &element{session: s, node: n, generation: gen})
	}
	return elements, nil
}

// selectCSS runs a CSS query below scope. goquery panics on selectors it cannot
// compile, so that is turned into an error.
func selectCSS(scope *html.Node, query string) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid css selector %q: %v", query, r)
		}
	}()
	return goquery.NewDocumentFromNode(scope).Find(query).Nodes, nil
}

// ExecuteScript is not available without a script engine.
func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	return schemas.NewProbeError("execute script", schemas.ErrUnsupported, nil)
}

// Close releases pooled connections.
func (s *Session) Close(ctx context.Context) error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}

// follow requests a URL relative to the current page and loads the result.
func (s *Session) follow(ctx context.Context, method, target string, values url.Values) error {
	_, base, _ := s.current()
	u, err := resolve(base, target)
	if err != nil {
		return err
	}

	req := s.client.R().SetContext(ctx)
	var res *resty.Response
	if method == http.MethodPost {
		res, err = req.SetFormDataFromValues(values).Post(u.String())
	} else {
		if values != nil {
			u.RawQuery = values.Encode()
		}
		res, err = req.Get(u.String())
	}
	if err != nil {
		return err
	}
	return s.load(res)
}

func resolve(base *url.URL, target string) (*url.URL, error) {
	target = strings.TrimSpace(target)
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", target, err)
	}
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}
