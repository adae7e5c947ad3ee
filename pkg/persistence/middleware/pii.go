package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks the values of object keys matching any of the patterns
// in the archived output. String values holding a JSON object, such as
// function call arguments, are masked too.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, summary domain.RunSummary) error {
	if len(summary.Output) > 0 && len(m.patterns) > 0 {
		var doc any
		if err := json.Unmarshal(summary.Output, &doc); err != nil {
			return fmt.Errorf("failed to decode run output: %w", err)
		}
		masked, err := json.Marshal(m.mask(doc))
		if err != nil {
			return fmt.Errorf("failed to encode run output: %w", err)
		}
		// summary is a copy; the caller's output slice is untouched.
		summary.Output = masked
	}
	return m.next.Save(ctx, summary)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (domain.RunSummary, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, sub := range val {
			if m.matches(k) {
				val[k] = Mask
				continue
			}
			val[k] = m.mask(sub)
		}
		return val
	case []any:
		for i, sub := range val {
			val[i] = m.mask(sub)
		}
		return val
	case string:
		return m.maskEmbedded(val)
	default:
		return v
	}
}

// maskEmbedded masks a string that is itself a JSON object.
func (m *piiMiddleware) maskEmbedded(s string) string {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	out, err := json.Marshal(m.mask(obj))
	if err != nil {
		return s
	}
	return string(out)
}
