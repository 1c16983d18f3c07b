package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStubFetchPricesDeterministic(t *testing.T) {
	stub := NewStub(42)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN"}

	m1, err := stub.FetchPrices(ctx, symbols, start, end)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	m2, err := NewStub(42).FetchPrices(ctx, symbols, start, end)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}

	if m1.Len() != m2.Len() {
		t.Fatalf("lengths differ: %d vs %d", m1.Len(), m2.Len())
	}
	for _, sym := range symbols {
		c1, ok := m1.Column(sym)
		if !ok {
			t.Fatalf("Column(%s) missing", sym)
		}
		c2, _ := m2.Column(sym)
		for i := range c1 {
			if c1[i] != c2[i] {
				t.Fatalf("column %s diverges at row %d: %v vs %v", sym, i, c1[i], c2[i])
			}
		}
	}
}

func TestStubSkipsWeekends(t *testing.T) {
	stub := NewStub(1)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	m, err := stub.FetchPrices(context.Background(), []string{"A", "B"}, start, end)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	for _, d := range m.Dates() {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("stub emitted a weekend date: %v", d)
		}
	}
	// January 2024 has 23 weekdays.
	if m.Len() != 23 {
		t.Fatalf("expected 23 rows, got %d", m.Len())
	}
}

func TestAlpacaFetchPricesPaged(t *testing.T) {
	type barsPage struct {
		Bars          []map[string]any `json:"bars"`
		Symbol        string           `json:"symbol"`
		NextPageToken *string          `json:"next_page_token"`
	}
	token := "page-2"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			http.Error(w, "unauthorized", http.StatusForbidden)
			return
		}
		var page barsPage
		switch {
		case r.URL.Path == "/v2/stocks/AAPL/bars" && r.URL.Query().Get("page_token") == "":
			page = barsPage{
				Symbol:        "AAPL",
				Bars:          []map[string]any{{"t": "2024-01-02T05:00:00Z", "c": 185.5}},
				NextPageToken: &token,
			}
		case r.URL.Path == "/v2/stocks/AAPL/bars" && r.URL.Query().Get("page_token") == token:
			page = barsPage{
				Symbol: "AAPL",
				Bars:   []map[string]any{{"t": "2024-01-03T05:00:00Z", "c": 186.0}},
			}
		case r.URL.Path == "/v2/stocks/MSFT/bars":
			page = barsPage{
				Symbol: "MSFT",
				Bars: []map[string]any{
					{"t": "2024-01-02T05:00:00Z", "c": 370.0},
					{"t": "2024-01-03T05:00:00Z", "c": 371.2},
				},
			}
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client, err := NewAlpacaClient(srv.URL, "key", "secret", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAlpacaClient: %v", err)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	m, err := client.FetchPrices(context.Background(), []string{"AAPL", "MSFT"}, start, end)
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", m.Len())
	}
	aapl, ok := m.Column("AAPL")
	if !ok {
		t.Fatalf("AAPL missing from matrix")
	}
	if aapl[0] != 185.5 || aapl[1] != 186.0 {
		t.Fatalf("unexpected AAPL closes: %v", aapl)
	}
}

func TestAlpacaDropsFailingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/stocks/BAD/bars" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"symbol": "GOOD",
			"bars": []map[string]any{
				{"t": "2024-01-02T05:00:00Z", "c": 10.0},
				{"t": "2024-01-03T05:00:00Z", "c": 10.5},
			},
		})
	}))
	defer srv.Close()

	client, err := NewAlpacaClient(srv.URL, "key", "secret", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAlpacaClient: %v", err)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := client.FetchPrices(context.Background(), []string{"GOOD", "BAD"}, start, time.Time{})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if got := m.Symbols(); len(got) != 1 || got[0] != "GOOD" {
		t.Fatalf("expected only GOOD to survive, got %v", got)
	}
}

func TestAlpacaRequiresCredentials(t *testing.T) {
	if _, err := NewAlpacaClient("", "", "", zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestQuoteFeedStubEmitsQuotes(t *testing.T) {
	feed := NewQuoteFeed("", []string{"AAPL", "MSFT"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan Quote, 16)
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, out) }()

	seen := make(map[string]bool)
	for len(seen) < 2 {
		select {
		case q := <-out:
			if q.Price <= 0 {
				t.Fatalf("non-positive quote price: %v", q.Price)
			}
			seen[q.Symbol] = true
		case <-ctx.Done():
			t.Fatal("timed out waiting for stub quotes")
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQuoteFeedSetSymbolsDedupes(t *testing.T) {
	feed := NewQuoteFeed("stub", []string{" MSFT", "AAPL", "AAPL", ""}, zerolog.Nop())
	got := feed.snapshotSymbols()
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Fatalf("unexpected symbol set: %v", got)
	}
}

func TestOpenResolvesProviders(t *testing.T) {
	p, err := Open("stub", "", "", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open(stub): %v", err)
	}
	if _, ok := p.(*Stub); !ok {
		t.Fatalf("expected *Stub, got %T", p)
	}

	p, err = Open("weird", "", "", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open(weird): %v", err)
	}
	if _, ok := p.(*Stub); !ok {
		t.Fatalf("unknown provider should fall back to stub, got %T", p)
	}

	if _, err := Open("alpaca", "", "", "", zerolog.Nop()); err == nil {
		t.Fatal("alpaca without credentials should error")
	}

	p, err = Open("alpaca", "", "key", "secret", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open(alpaca): %v", err)
	}
	if _, ok := p.(*AlpacaClient); !ok {
		t.Fatalf("expected *AlpacaClient, got %T", p)
	}
}
