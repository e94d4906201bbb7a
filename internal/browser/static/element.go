// internal/browser/static/element.go
package static

import (
	"context"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// element is a node of a loaded document.
type element struct {
	session    *Session
	node       *html.Node
	generation uint64
}

var _ schemas.Element = (*element)(nil)

// live fails once the document the node belongs to has been replaced.
func (e *element) live(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, gen := e.session.current()
	if gen != e.generation {
		return schemas.NewProbeError(op, schemas.ErrElementNotFound, errStale)
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.live(ctx, "attribute "+name); err != nil {
		return "", err
	}
	return htmlquery.SelectAttr(e.node, name), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.live(ctx, "text"); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(e.node)), " "), nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := e.live(ctx, "visible"); err != nil {
		return false, err
	}
	return visible(e.node), nil
}

// Fill stores value in the control's value attribute, which is what gets submitted.
func (e *element) Fill(ctx context.Context, value string) error {
	if err := e.live(ctx, "fill"); err != nil {
		return err
	}
	if !visible(e.node) || !editable(e.node) {
		return schemas.NewProbeError("fill", schemas.ErrNotInteractable, nil)
	}

	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	if e.node.Data == "textarea" {
		for c := e.node.FirstChild; c != nil; {
			next := c.NextSibling
			e.node.RemoveChild(c)
			c = next
		}
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return nil
	}
	setAttr(e.node, "value", value)
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.live(ctx, "click"); err != nil {
		return err
	}
	if !visible(e.node) || disabled(e.node) {
		return schemas.NewProbeError("click", schemas.ErrNotInteractable, nil)
	}
	return e.activate(ctx, "click")
}

// ScriptClick activates the element regardless of visibility, like el.click().
func (e *element) ScriptClick(ctx context.Context) error {
	if err := e.live(ctx, "script click"); err != nil {
		return err
	}
	return e.activate(ctx, "script click")
}

// activate performs the default action: submit controls post their form and links
// are followed. Anything else has no effect without scripts.
func (e *element) activate(ctx context.Context, op string) error {
	switch {
	case isSubmitControl(e.node):
		form := owningForm(e.node)
		if form == nil {
			return nil
		}
		if err := e.session.submit(ctx, form, e.node); err != nil {
			return schemas.NewProbeError(op, schemas.ErrNotInteractable, err)
		}
	case e.node.Data == "a":
		href := htmlquery.SelectAttr(e.node, "href")
		if href == "" || strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript:") || strings.HasPrefix(href, "#") {
			return nil
		}
		if err := e.session.follow(ctx, "GET", href, nil); err != nil {
			return schemas.NewProbeError(op, schemas.ErrNotInteractable, err)
		}
	}
	return nil
}

func (e *element) Submit(ctx context.Context) error {
	if err := e.live(ctx, "submit"); err != nil {
		return err
	}
	form := owningForm(e.node)
	if form == nil {
		return schemas.NewProbeError("submit", schemas.ErrNotInteractable, errNoForm)
	}
	if err := e.session.submit(ctx, form, nil); err != nil {
		return schemas.NewProbeError("submit", schemas.ErrNotInteractable, err)
	}
	return nil
}

func (e *element) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	if err := e.live(ctx, "find "+loc.String()); err != nil {
		return nil, err
	}
	return e.session.query(e.node, e.generation, loc)
}

// -- DOM helpers --

// hiddenSelf reports whether n alone (ignoring ancestors) is not rendered.
func hiddenSelf(n *html.Node) bool {
	switch n.Data {
	case "head", "script", "style", "noscript", "template":
		return true
	case "input":
		if strings.EqualFold(htmlquery.SelectAttr(n, "type"), "hidden") {
			return true
		}
	}
	if hasAttr(n, "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(htmlquery.SelectAttr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// visible walks up to the document checking inline hiding rules. Stylesheets are
// not evaluated.
func visible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && hiddenSelf(cur) {
			return false
		}
	}
	return true
}

func disabled(n *html.Node) bool {
	return hasAttr(n, "disabled") || htmlquery.SelectAttr(n, "aria-disabled") == "true"
}

func editable(n *html.Node) bool {
	if disabled(n) || hasAttr(n, "readonly") {
		return false
	}
	switch n.Data {
	case "textarea":
		return true
	case "input":
		switch strings.ToLower(htmlquery.SelectAttr(n, "type")) {
		case "hidden", "submit", "button", "image", "reset", "checkbox", "radio", "file":
			return false
		}
		return true
	}
	return false
}

func isSubmitControl(n *html.Node) bool {
	typ := strings.ToLower(htmlquery.SelectAttr(n, "type"))
	switch n.Data {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	}
	return false
}

// owningForm resolves the form attribute first, then the nearest ancestor form.
func owningForm(n *html.Node) *html.Node {
	if id := htmlquery.SelectAttr(n, "form"); id != "" {
		root := n
		for root.Parent != nil {
			root = root.Parent
		}
		if form := htmlquery.FindOne(root, "//form[@id='"+strings.ReplaceAll(id, "'", "")+"']"); form != nil {
			return form
		}
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.Data == "form" {
			return cur
		}
	}
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
