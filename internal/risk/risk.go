package risk

// Limits caps the gross notional a single spread entry may deploy. Zero
// means unlimited.
type Limits struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Allow reports whether the given notional fits under the cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// AllowSpread checks the combined notional of both legs: qty of the
// dependent symbol plus the hedge-ratio-scaled quantity of the other.
func (l Limits) AllowSpread(qty, yPrice, xPrice, hedgeRatio float64) bool {
	gross := qty*yPrice + qty*hedgeRatio*xPrice
	return l.Allow(gross)
}
