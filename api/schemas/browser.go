package schemas

import (
	"context"
)

// -- Browser Capability Schemas --

// LocatorKind selects the query language used to find elements.
type LocatorKind string

const (
	ByCSS   LocatorKind = "css"
	ByXPath LocatorKind = "xpath"
	ByTag   LocatorKind = "tag"
)

// Locator identifies a set of elements on the page, or below an element when used
// through Element.FindElements. XPath locators used relative to an element should
// start with "./" or ".//".
type Locator struct {
	Kind  LocatorKind
	Query string
}

// CSS is shorthand for a CSS selector locator.
func CSS(query string) Locator { return Locator{Kind: ByCSS, Query: query} }

// XPath is shorthand for an XPath locator.
func XPath(query string) Locator { return Locator{Kind: ByXPath, Query: query} }

// Tag is shorthand for a tag-name locator.
func Tag(name string) Locator { return Locator{Kind: ByTag, Query: name} }

// String renders the locator for logs.
func (l Locator) String() string {
	return string(l.Kind) + "=" + l.Query
}

// Session is the capability a browser backend must provide to the discovery
// heuristics. Every call returns an explicit error; implementations wrap failures in
// a ProbeError so callers can classify them with errors.Is.
//
// A Session is owned by a single goroutine for its whole lifetime.
type Session interface {
	// Backend names the implementation (e.g. "chrome", "firefox").
	Backend() string
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	// PageText returns the rendered text content of the current document.
	PageText(ctx context.Context) (string, error)
	// FindElements returns every element matching loc in document order. An empty
	// result is not an error.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// ExecuteScript runs a JavaScript statement in the page. Backends without a
	// script engine return ErrUnsupported.
	ExecuteScript(ctx context.Context, script string) error
	// Close releases the tab and any driver process owned by the session.
	Close(ctx context.Context) error
}

// Element is a handle to a DOM element inside a Session. Handles become stale after
// navigation; operations on a stale handle return an error.
type Element interface {
	// Attribute returns the attribute value, or "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	// Text returns the element's visible text.
	Text(ctx context.Context) (string, error)
	// Visible reports whether the element is currently displayed.
	Visible(ctx context.Context) (bool, error)
	// Fill clears the element and types value into it.
	Fill(ctx context.Context, value string) error
	// Click performs a native click on the element.
	Click(ctx context.Context) error
	// ScriptClick clicks through the DOM click() method, bypassing hit testing.
	ScriptClick(ctx context.Context) error
	// Submit submits the form that owns the element.
	Submit(ctx context.Context) error
	// FindElements searches below (or, with an XPath axis, around) the element.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
}
