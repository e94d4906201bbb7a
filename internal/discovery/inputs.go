// internal/discovery/inputs.go
package discovery

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// descriptiveAttributes are joined and scanned for EmailKeywords.
var descriptiveAttributes = []string{"type", "name", "id", "placeholder", "aria-label"}

// FindEmailInputs polls for visible inputs that look like email fields, in document
// order. It returns on the first poll with a match, or nil after timeout.
func (p *Prober) FindEmailInputs(ctx context.Context, sess schemas.Session, timeout time.Duration) []schemas.Element {
	var candidates []schemas.Element
	p.poll(ctx, timeout, func() bool {
		candidates = p.emailInputs(ctx, sess)
		return len(candidates) > 0
	})
	return candidates
}

func (p *Prober) emailInputs(ctx context.Context, sess schemas.Session) []schemas.Element {
	inputs, err := sess.FindElements(ctx, schemas.Tag("input"))
	if err != nil {
		p.logger.Debug("Input enumeration failed.", zap.Error(err))
		return nil
	}

	var candidates []schemas.Element
	for _, in := range inputs {
		if ok, err := looksLikeEmail(ctx, in); err == nil && ok {
			candidates = append(candidates, in)
		}
	}
	return candidates
}

// looksLikeEmail checks visibility first, then the input's descriptive attributes.
func looksLikeEmail(ctx context.Context, in schemas.Element) (bool, error) {
	visible, err := in.Visible(ctx)
	if err != nil || !visible {
		return false, err
	}

	parts := make([]string, 0, len(descriptiveAttributes))
	for _, attr := range descriptiveAttributes {
		v, err := in.Attribute(ctx, attr)
		if err != nil {
			return false, err
		}
		parts = append(parts, v)
	}

	if strings.ToLower(parts[0]) == "email" {
		return true, nil
	}
	return containsAny(strings.ToLower(strings.Join(parts, " ")), EmailKeywords), nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
