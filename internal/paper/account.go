// Package paper simulates fills and balances for the scheduled trader loop.
// Positions are signed: selling with no inventory opens a short, which a
// hedged spread needs on every entry.
package paper

import (
	"errors"
	"math"
	"sync"
	"time"

	"statarb/internal/execution"
	"statarb/internal/pairs"
)

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

const epsilon = 1e-9

type positionState struct {
	Qty     float64 // signed, negative means short
	AvgCost float64
}

// Account tracks virtual cash, realized PnL, and signed per-symbol positions
// while trading in paper mode.
type Account struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	realizedPnL  float64
	positions    map[string]positionState
	recorder     FillRecorder
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state, optionally
// marked to market using provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account populated with starting cash. recorder may
// be nil.
func NewAccount(startingCash float64, recorder FillRecorder) *Account {
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[string]positionState),
		recorder:     recorder,
	}
}

// StartingCash returns the initial bankroll used to compute drawdown.
func (a *Account) StartingCash() float64 { return a.startingCash }

// MarketFill executes an order at the provided price. Buys reduce cash, sells
// add to it; crossing through zero realizes PnL against the average cost of
// the side being closed.
func (a *Account) MarketFill(symbol string, side execution.Side, qty, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}
	signed := qty
	if side == execution.Sell {
		signed = -qty
	} else if side != execution.Buy {
		return errors.New("unknown order side")
	}

	a.mu.Lock()
	state := a.positions[symbol]
	newQty := state.Qty + signed
	newAvg := state.AvgCost

	switch {
	case state.Qty == 0 || sameSign(state.Qty, signed):
		// Opening or adding: blend average cost.
		newAvg = (math.Abs(state.Qty)*state.AvgCost + qty*price) / math.Abs(newQty)
	case math.Abs(signed) <= math.Abs(state.Qty)+epsilon:
		// Reducing or closing: realize against the held side.
		closed := math.Min(qty, math.Abs(state.Qty))
		if state.Qty > 0 {
			a.realizedPnL += (price - state.AvgCost) * closed
		} else {
			a.realizedPnL += (state.AvgCost - price) * closed
		}
	default:
		// Crossing through zero: realize the whole held side, open the rest.
		closed := math.Abs(state.Qty)
		if state.Qty > 0 {
			a.realizedPnL += (price - state.AvgCost) * closed
		} else {
			a.realizedPnL += (state.AvgCost - price) * closed
		}
		newAvg = price
	}

	a.cash -= signed * price
	if math.Abs(newQty) <= epsilon {
		delete(a.positions, symbol)
	} else {
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: newAvg}
	}
	a.mu.Unlock()

	if a.recorder != nil {
		a.recorder.Record(execution.Fill{Symbol: symbol, Side: side, Qty: qty, Price: price, Ts: time.Now().UTC()})
	}
	return nil
}

// FillSpread applies both legs of a pair trade at the given marks. direction
// +1 buys the dependent leg and shorts the hedge; -1 reverses. The hedge leg
// is scaled by the pair's hedge ratio.
func (a *Account) FillSpread(cand pairs.Candidate, direction int, qty, yPrice, xPrice float64) error {
	if direction != 1 && direction != -1 {
		return errors.New("spread direction must be +1 or -1")
	}
	ySide, xSide := execution.Buy, execution.Sell
	if direction == -1 {
		ySide, xSide = execution.Sell, execution.Buy
	}
	if err := a.MarketFill(cand.Y, ySide, qty, yPrice); err != nil {
		return err
	}
	return a.MarketFill(cand.X, xSide, qty*cand.HedgeRatio, xPrice)
}

// Snapshot returns a copy of balances, optionally marked using the supplied
// prices map. Symbols with no mark contribute nothing to equity.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		mark := prices[sym]
		marketValue := pos.Qty * mark
		unrealized := (mark - pos.AvgCost) * pos.Qty
		if mark == 0 {
			marketValue = 0
			unrealized = 0
		}
		positions[sym] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  unrealized,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// Position returns the signed position size for the supplied symbol.
func (a *Account) Position(symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
