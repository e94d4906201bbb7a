// internal/discovery/confirmation.go
package discovery

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signup-cli/api/schemas"
)

// DetectConfirmation polls the page's rendered text until one of keywords shows up
// (case-insensitive substring) or timeout elapses. Read errors count as "not yet".
func (p *Prober) DetectConfirmation(ctx context.Context, sess schemas.Session, keywords []string, timeout time.Duration) bool {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return false
	}

	var matched string
	found := p.poll(ctx, timeout, func() bool {
		text, err := sess.PageText(ctx)
		if err != nil {
			p.logger.Debug("Page text unavailable.", zap.Error(err))
			return false
		}
		text = strings.ToLower(text)
		for _, k := range lowered {
			if strings.Contains(text, k) {
				matched = k
				return true
			}
		}
		return false
	})

	if found {
		p.logger.Debug("Confirmation keyword found.", zap.String("keyword", matched))
	}
	return found
}
