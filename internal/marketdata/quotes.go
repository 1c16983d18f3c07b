package marketdata

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/metrics"
)

const (
	// QuoteProviderStub emits deterministic synthetic quotes (useful for tests/offline work).
	QuoteProviderStub = "stub"
	// QuoteProviderBinance streams live trades from Binance public websockets.
	QuoteProviderBinance = "binance"
)

// Quote is a single last-price observation used to mark open spreads.
type Quote struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// QuoteFeed is a pluggable live price stream. It exists so the trader loop
// can mark open positions between daily rescans.
type QuoteFeed struct {
	provider string
	symbols  []string
	log      zerolog.Logger
	mu       sync.RWMutex
}

// NewQuoteFeed constructs a feed backed by the requested provider. An empty
// provider falls back to the stub.
func NewQuoteFeed(provider string, symbols []string, log zerolog.Logger) *QuoteFeed {
	if provider == "" {
		provider = QuoteProviderStub
	}
	f := &QuoteFeed{
		provider: strings.ToLower(provider),
		log:      log,
	}
	f.SetSymbols(symbols)
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for
// determinism). Takes effect on the next reconnect for streaming providers.
func (f *QuoteFeed) SetSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *QuoteFeed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes quotes onto the provided channel until the context is canceled.
func (f *QuoteFeed) Run(ctx context.Context, out chan<- Quote) error {
	switch f.provider {
	case QuoteProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *QuoteFeed) runStub(ctx context.Context, out chan<- Quote) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var px float64 = 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, s := range f.snapshotSymbols() {
				q := Quote{Symbol: s, Price: px, Ts: ts}
				select {
				case out <- q:
					metrics.QuotesTotal.WithLabelValues(s).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
