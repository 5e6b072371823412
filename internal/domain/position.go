package domain

// Holding is the fold's view of one stock: everything derivable from the
// transaction log alone.
type Holding struct {
	Quantity     int64   // Net shares held, always positive for a stored holding
	TotalCost    float64 // Running cost basis, meaning depends on the CostBasisPolicy
	AveragePrice float64 // TotalCost / Quantity
	SeedPrice    float64 // Price of the transaction that opened the holding
}

// Position is a Holding combined with the user's current market price.
type Position struct {
	TotalQuantity int64
	TotalCost     float64
	AveragePrice  float64
	CurrentPrice  float64
}

// NewPosition merges a holding with its price overlay.
func NewPosition(h Holding, currentPrice float64) Position {
	return Position{
		TotalQuantity: h.Quantity,
		TotalCost:     h.TotalCost,
		AveragePrice:  h.AveragePrice,
		CurrentPrice:  currentPrice,
	}
}

// MarketValue returns quantity times current price.
func (p Position) MarketValue() float64 {
	return float64(p.TotalQuantity) * p.CurrentPrice
}

// Profit returns the unrealized profit against the cost basis.
func (p Position) Profit() float64 {
	return p.MarketValue() - p.TotalCost
}

// State is the complete persisted portfolio: the log is the source of truth,
// Holdings are derived from it, Prices is the out-of-band overlay.
type State struct {
	Holdings     map[string]Holding
	Prices       map[string]float64
	Transactions []Transaction
	Policy       CostBasisPolicy
}

// NewState returns an empty state with the given policy.
func NewState(policy CostBasisPolicy) *State {
	return &State{
		Holdings:     make(map[string]Holding),
		Prices:       make(map[string]float64),
		Transactions: make([]Transaction, 0),
		Policy:       policy,
	}
}

// Positions merges holdings with the price overlay. A holding without an
// overlay entry falls back to its seed price.
func (s *State) Positions() map[string]Position {
	out := make(map[string]Position, len(s.Holdings))
	for name, h := range s.Holdings {
		price, ok := s.Prices[name]
		if !ok {
			price = h.SeedPrice
		}
		out[name] = NewPosition(h, price)
	}
	return out
}
