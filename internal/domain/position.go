package domain

// Position is one open perpetual-futures exposure on Hyperliquid. Size is
// signed: positive for long, negative for short.
type Position struct {
	Coin             string
	Size             float64
	EntryPrice       float64
	Value            float64
	UnrealizedPnL    float64
	Leverage         float64
	LiquidationPrice float64
	MarginUsed       float64
	ReturnOnEquity   float64
	FundingSinceOpen float64
}

// Active reports whether the position is open. A zero size means the coin has
// no position, the same as being absent from a snapshot.
func (p Position) Active() bool {
	return p.Size != 0
}

// Side returns "LONG", "SHORT", or "FLAT" from the signed size.
func (p Position) Side() string {
	switch {
	case p.Size > 0:
		return "LONG"
	case p.Size < 0:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// MarginSummary is the account-level rollup that accompanies a snapshot.
type MarginSummary struct {
	AccountValue    float64
	TotalNotional   float64
	TotalMarginUsed float64
	UnrealizedPnL   float64
	MarginUsage     float64
}

// PositionSnapshot is the full set of a wallet's positions plus the margin
// summary at one point in time. The tracker replaces it wholesale each poll.
type PositionSnapshot struct {
	Margin    MarginSummary
	Positions []Position
}

// Sizes returns a coin -> signed-size map. Coins with zero size are included
// as-is; callers treat zero and absent identically.
func (s PositionSnapshot) Sizes() map[string]float64 {
	m := make(map[string]float64, len(s.Positions))
	for _, p := range s.Positions {
		m[p.Coin] = p.Size
	}
	return m
}

// HasActive reports whether any coin in the snapshot has a nonzero size.
func (s PositionSnapshot) HasActive() bool {
	for _, p := range s.Positions {
		if p.Active() {
			return true
		}
	}
	return false
}

// Find returns the position for coin and whether it exists in the snapshot.
func (s PositionSnapshot) Find(coin string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Coin == coin {
			return p, true
		}
	}
	return Position{}, false
}
