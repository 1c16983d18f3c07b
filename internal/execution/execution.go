// Package execution handles order lifecycle for the two legs of a spread.
package execution

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"statarb/internal/metrics"
	"statarb/internal/pairs"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Order represents a placement request the executor can process.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // 0 for market (avoid in real life)
}

// Fill is the executed counterpart of an Order, stamped with the price the
// paper account marked it at.
type Fill struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// Executor implements a logger-backed submitter for orders.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for future order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit currently logs out the order request; wire a real broker API later.
func (executor *Executor) Submit(order Order) error {
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	executor.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).Float64("qty", order.Qty).Float64("px", order.Price).Msg("submit order (stub)")
	return nil
}

// SubmitSpread places both legs of a pair trade. direction +1 buys the
// dependent symbol and hedges short; -1 does the reverse. qty is the
// dependent-leg quantity; the hedge leg is scaled by the pair's hedge ratio.
func (executor *Executor) SubmitSpread(cand pairs.Candidate, direction int, qty float64) error {
	if direction != 1 && direction != -1 {
		return fmt.Errorf("spread direction must be +1 or -1, got %d", direction)
	}
	if qty <= 0 {
		return fmt.Errorf("spread qty must be positive, got %v", qty)
	}

	ySide, xSide := Buy, Sell
	if direction == -1 {
		ySide, xSide = Sell, Buy
	}
	if err := executor.Submit(Order{Symbol: cand.Y, Side: ySide, Qty: qty}); err != nil {
		return fmt.Errorf("dependent leg %s: %w", cand.Y, err)
	}
	if err := executor.Submit(Order{Symbol: cand.X, Side: xSide, Qty: qty * cand.HedgeRatio}); err != nil {
		return fmt.Errorf("hedge leg %s: %w", cand.X, err)
	}
	return nil
}
