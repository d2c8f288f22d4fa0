package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

// DefaultPIIPatterns cover common credentials and contact details.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b(?:sk|pk|rk)-[A-Za-z0-9_-]{16,}\b`,
	`\bgh[pousr]_[A-Za-z0-9]{20,}\b`,
	`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`,
	`\b\d{3}-\d{2}-\d{4}\b`,
}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks every match of patterns in message contents and
// plan titles before the session is stored. The caller's session is not
// modified.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pii pattern %q: %v", domain.ErrValidation, p, err)
		}
		compiled = append(compiled, re)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrValidation
	}
	masked := session.Clone()
	for i := range masked.Messages {
		masked.Messages[i].Content = m.mask(masked.Messages[i].Content)
	}
	for i := range masked.Plan {
		masked.Plan[i].Title = m.mask(masked.Plan[i].Title)
	}
	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) mask(s string) string {
	for _, re := range m.patterns {
		s = re.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
