// internal/discovery/cookies.go
package discovery

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// DismissCookieBanner clicks the first visible match of the first pattern that has
// one. Failing patterns and elements are skipped. It reports whether anything was
// clicked.
func (p *Prober) DismissCookieBanner(ctx context.Context, sess schemas.Session, xpaths []string) bool {
	for _, xp := range xpaths {
		if ctx.Err() != nil {
			return false
		}

		elements, err := sess.FindElements(ctx, schemas.XPath(xp))
		if err != nil {
			p.logger.Debug("Cookie pattern failed.", zap.String("xpath", xp), zap.Error(err))
			continue
		}

		for _, el := range elements {
			if visible, err := el.Visible(ctx); err != nil || !visible {
				continue
			}
			if err := el.Click(ctx); err != nil {
				p.logger.Debug("Cookie button refused the click.", zap.String("xpath", xp), zap.Error(err))
				continue
			}
			p.logger.Debug("Dismissed cookie banner.", zap.String("xpath", xp))
			_ = Sleep(ctx, p.timings.CookieClickWait)
			return true
		}
	}
	return false
}
