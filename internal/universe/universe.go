// Package universe supplies the candidate symbol list that seeds pair
// discovery. Enumeration itself lives outside the core, so implementations
// here are deliberately thin.
package universe

import (
	"context"
	"fmt"
	"strings"
)

// Provider yields the ordered candidate symbols for a scan. Entries are
// expected to be unique and non-empty; nothing more is assumed.
type Provider interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Fallback is the short large-cap list used when no universe is configured.
var Fallback = []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA", "TSLA", "META", "BRK.B", "UNH", "JNJ"}

// Static serves a fixed, deduplicated symbol list.
type Static struct {
	symbols []string
}

// NewStatic builds a provider from the configured list, deduplicating while
// preserving order. An empty list falls back to the default large caps.
func NewStatic(symbols []string) *Static {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	if len(out) == 0 {
		out = append(out, Fallback...)
	}
	return &Static{symbols: out}
}

// Symbols returns a copy of the configured list.
func (s *Static) Symbols(_ context.Context) ([]string, error) {
	if len(s.symbols) == 0 {
		return nil, fmt.Errorf("universe is empty")
	}
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out, nil
}
