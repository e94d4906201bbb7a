// internal/browser/static/form.go
package static

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	errStale  = errors.New("stale element reference")
	errNoForm = errors.New("element is not inside a form")
)

// submit encodes the form's successful controls and sends them to its action.
// submitter is the button that triggered the submission, or nil.
func (s *Session) submit(ctx context.Context, form, submitter *html.Node) error {
	method := http.MethodGet
	if strings.EqualFold(htmlquery.SelectAttr(form, "method"), "post") {
		method = http.MethodPost
	}
	action := htmlquery.SelectAttr(form, "action")

	// Submitter overrides, as in HTML's formaction/formmethod.
	if submitter != nil {
		if fa := htmlquery.SelectAttr(submitter, "formaction"); fa != "" {
			action = fa
		}
		if fm := htmlquery.SelectAttr(submitter, "formmethod"); fm != "" {
			method = http.MethodGet
			if strings.EqualFold(fm, "post") {
				method = http.MethodPost
			}
		}
	}

	values := formValues(form, submitter)
	s.logger.Debug("Submitting form.",
		zap.String("method", method),
		zap.String("action", action),
		zap.Int("fields", len(values)),
	)
	return s.follow(ctx, method, action, values)
}

// formValues collects name/value pairs the way a browser builds a form data set.
func formValues(form, submitter *html.Node) url.Values {
	values := url.Values{}
	for _, n := range htmlquery.Find(form, ".//input | .//textarea | .//select | .//button") {
		name := htmlquery.SelectAttr(n, "name")
		if name == "" || disabled(n) {
			continue
		}

		switch n.Data {
		case "textarea":
			values.Add(name, htmlquery.InnerText(n))
		case "select":
			if v, ok := selectedOption(n); ok {
				values.Add(name, v)
			}
		case "button":
			if n == submitter {
				values.Add(name, htmlquery.SelectAttr(n, "value"))
			}
		case "input":
			switch strings.ToLower(htmlquery.SelectAttr(n, "type")) {
			case "submit", "image":
				if n == submitter {
					values.Add(name, htmlquery.SelectAttr(n, "value"))
				}
			case "checkbox", "radio":
				if hasAttr(n, "checked") {
					v := htmlquery.SelectAttr(n, "value")
					if v == "" {
						v = "on"
					}
					values.Add(name, v)
				}
			case "button", "reset", "file":
			default:
				values.Add(name, htmlquery.SelectAttr(n, "value"))
			}
		}
	}
	return values
}

func selectedOption(sel *html.Node) (string, bool) {
	options := htmlquery.Find(sel, ".//option")
	if len(options) == 0 {
		return "", false
	}
	chosen := options[0]
	for _, o := range options {
		if hasAttr(o, "selected") {
			chosen = o
			break
		}
	}
	if hasAttr(chosen, "value") {
		return htmlquery.SelectAttr(chosen, "value"), true
	}
	return strings.TrimSpace(htmlquery.InnerText(chosen)), true
}
