package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"statarb/internal/market"
)

const defaultAlpacaBaseURL = "https://data.alpaca.markets"

// AlpacaClient fetches adjusted daily closing bars from the Alpaca market
// data API and pivots them into a PriceMatrix.
type AlpacaClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	key        string
	secret     string
	logger     zerolog.Logger
}

// NewAlpacaClient constructs a rate-limited client. Credentials are required;
// baseURL may be empty to use the production data endpoint.
func NewAlpacaClient(baseURL, key, secret string, logger zerolog.Logger) (*AlpacaClient, error) {
	if key == "" || secret == "" {
		return nil, fmt.Errorf("alpaca credentials missing")
	}
	if baseURL == "" {
		baseURL = defaultAlpacaBaseURL
	}
	return &AlpacaClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(350*time.Millisecond), 1), // stay under the free-tier request cap
		baseURL:    baseURL,
		key:        key,
		secret:     secret,
		logger:     logger.With().Str("component", "alpaca_client").Logger(),
	}, nil
}

type alpacaBar struct {
	Timestamp time.Time `json:"t"`
	Close     float64   `json:"c"`
}

type alpacaBarsResponse struct {
	Bars          []alpacaBar `json:"bars"`
	Symbol        string      `json:"symbol"`
	NextPageToken *string     `json:"next_page_token"`
}

// FetchPrices pulls daily bars per symbol, then aligns the columns into a
// dense matrix (forward-fill, drop leading gaps). Symbols that return no bars
// are dropped with a logged warning rather than failing the whole fetch; the
// fetch only errors when no usable columns remain.
func (c *AlpacaClient) FetchPrices(ctx context.Context, symbols []string, start, end time.Time) (*market.PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols requested")
	}

	perSymbol := make(map[string]map[time.Time]float64, len(symbols))
	kept := make([]string, 0, len(symbols))
	dateSet := make(map[time.Time]struct{})

	for _, sym := range symbols {
		closes, err := c.fetchSymbol(ctx, sym, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("symbol", sym).Msg("dropping symbol from matrix")
			continue
		}
		if len(closes) == 0 {
			c.logger.Warn().Str("symbol", sym).Msg("no bars returned, dropping symbol")
			continue
		}
		perSymbol[sym] = closes
		kept = append(kept, sym)
		for d := range closes {
			dateSet[d] = struct{}{}
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no usable symbols in fetch")
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := make([][]float64, len(kept))
	for i, sym := range kept {
		col := make([]float64, len(dates))
		for t, d := range dates {
			if v, ok := perSymbol[sym][d]; ok {
				col[t] = v
			} else {
				col[t] = math.NaN()
			}
		}
		columns[i] = col
	}

	m, err := market.Align(dates, kept, columns)
	if err != nil {
		return nil, fmt.Errorf("align fetched bars: %w", err)
	}
	c.logger.Info().Int("symbols", len(kept)).Int("rows", m.Len()).Msg("loaded price matrix")
	return m, nil
}

// fetchSymbol pages through the bars endpoint for one symbol. Each page
// request is retried with exponential backoff.
func (c *AlpacaClient) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64)
	pageToken := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		q := url.Values{}
		q.Set("timeframe", "1Day")
		q.Set("adjustment", "all")
		q.Set("limit", "10000")
		q.Set("start", start.Format(time.RFC3339))
		if !end.IsZero() {
			q.Set("end", end.Format(time.RFC3339))
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		reqURL := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

		var page alpacaBarsResponse
		operation := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("APCA-API-KEY-ID", c.key)
			req.Header.Set("APCA-API-SECRET-KEY", c.secret)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("bars request for %s: status %d", symbol, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return backoff.Permanent(fmt.Errorf("bars request for %s: status %d: %s", symbol, resp.StatusCode, body))
			}
			page = alpacaBarsResponse{}
			if err := json.Unmarshal(body, &page); err != nil {
				return backoff.Permanent(fmt.Errorf("decode bars for %s: %w", symbol, err))
			}
			return nil
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
		if err := backoff.Retry(operation, policy); err != nil {
			return nil, err
		}

		for _, bar := range page.Bars {
			day := time.Date(bar.Timestamp.Year(), bar.Timestamp.Month(), bar.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
			out[day] = bar.Close
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		pageToken = *page.NextPageToken
	}
	return out, nil
}
