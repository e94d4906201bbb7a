// internal/discovery/submit.go
package discovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// FindSubmitNear locates the control that submits input. A visible button inside the
// nearest enclosing form wins; otherwise the first visible page-wide button whose
// value or text carries a SubmitKeywords entry.
func (p *Prober) FindSubmitNear(ctx context.Context, sess schemas.Session, input schemas.Element) (schemas.Element, bool) {
	if btn, ok := p.formButton(ctx, input); ok {
		return btn, true
	}

	buttons, err := sess.FindElements(ctx, schemas.XPath(PageButtonsXPath))
	if err != nil {
		p.logger.Debug("Page-wide button search failed.", zap.Error(err))
		return nil, false
	}
	for _, btn := range buttons {
		label, err := buttonLabel(ctx, btn)
		if err != nil || !containsAny(strings.ToLower(label), SubmitKeywords) {
			continue
		}
		if visible, err := btn.Visible(ctx); err == nil && visible {
			return btn, true
		}
	}
	return nil, false
}

func (p *Prober) formButton(ctx context.Context, input schemas.Element) (schemas.Element, bool) {
	forms, err := input.FindElements(ctx, schemas.XPath(EnclosingFormXPath))
	if err != nil || len(forms) == 0 {
		return nil, false
	}

	buttons, err := forms[0].FindElements(ctx, schemas.XPath(FormButtonsXPath))
	if err != nil {
		p.logger.Debug("Form button search failed.", zap.Error(err))
		return nil, false
	}
	for _, btn := range buttons {
		if visible, err := btn.Visible(ctx); err == nil && visible {
			return btn, true
		}
	}
	return nil, false
}

// buttonLabel is value + " " + text, the way a user would read the control.
func buttonLabel(ctx context.Context, btn schemas.Element) (string, error) {
	value, err := btn.Attribute(ctx, "value")
	if err != nil {
		return "", err
	}
	text, err := btn.Text(ctx)
	if err != nil {
		return "", err
	}
	return value + " " + text, nil
}
