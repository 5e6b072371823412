// Package accounting folds a transaction stream into average-cost holdings.
//
// Quantities are whole shares; costs and prices are plain float64 values and
// no rounding is applied. Rounding is left to presentation code.
package accounting

import (
	"fmt"
	"iter"
	"maps"
	"math"

	"stockCalculator/internal/domain"
	"stockCalculator/internal/ports"
)

// Fold replays txs in the order given and returns the resulting holdings.
// Callers are expected to pass transactions sorted by timestamp.
//
// A sell exceeding the shares held stops the fold with an error wrapping
// ports.ErrInsufficientShares. For a log that was valid when committed this
// means an invariant was broken upstream.
func Fold(txs iter.Seq[domain.Transaction], policy domain.CostBasisPolicy) (map[string]domain.Holding, error) {
	holdings := make(map[string]domain.Holding)
	for t := range txs {
		if err := Apply(holdings, t, policy); err != nil {
			return nil, err
		}
	}
	return holdings, nil
}

// Apply folds a single transaction into holdings.
// On error holdings is left unchanged. Besides oversells, a buy that would
// overflow the share count or a step that leaves a non-finite total cost is
// rejected with ports.ErrValidation.
func Apply(holdings map[string]domain.Holding, t domain.Transaction, policy domain.CostBasisPolicy) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: transaction %d: %w", ports.ErrValidation, t.ID, err)
	}

	h, ok := holdings[t.StockName]
	if !ok {
		h = domain.Holding{SeedPrice: t.Price}
	}

	switch t.Type {
	case domain.Buy:
		if h.Quantity > math.MaxInt64-t.Quantity {
			return fmt.Errorf("%w: transaction %d would overflow the %s quantity (%d held, %d bought)",
				ports.ErrValidation, t.ID, t.StockName, h.Quantity, t.Quantity)
		}
		h = buy(h, t)
	case domain.Sell:
		if err := CheckSell(holdings, t); err != nil {
			return err
		}
		h = sell(h, t, policy)
	}
	if math.IsInf(h.TotalCost, 0) || math.IsNaN(h.TotalCost) {
		return fmt.Errorf("%w: transaction %d makes the %s total cost non-finite",
			ports.ErrValidation, t.ID, t.StockName)
	}

	if h.Quantity == 0 {
		delete(holdings, t.StockName)
		return nil
	}
	holdings[t.StockName] = h
	return nil
}

// CheckSell reports an error if t sells more shares than holdings contains.
// Non-sell transactions always pass.
func CheckSell(holdings map[string]domain.Holding, t domain.Transaction) error {
	if t.Type != domain.Sell {
		return nil
	}
	held := holdings[t.StockName].Quantity
	if t.Quantity > held {
		return fmt.Errorf("%w: transaction %d sells %d %s but only %d held",
			ports.ErrInsufficientShares, t.ID, t.Quantity, t.StockName, held)
	}
	return nil
}

func buy(h domain.Holding, t domain.Transaction) domain.Holding {
	h.Quantity += t.Quantity
	h.TotalCost += t.Amount()
	h.AveragePrice = h.TotalCost / float64(h.Quantity)
	return h
}

func sell(h domain.Holding, t domain.Transaction, policy domain.CostBasisPolicy) domain.Holding {
	remaining := h.Quantity - t.Quantity
	if policy.IncludesRealizedPnl() {
		h.TotalCost -= t.Amount()
	} else {
		h.TotalCost -= float64(t.Quantity) * h.AveragePrice
	}
	h.Quantity = remaining
	if remaining == 0 {
		h.TotalCost = 0
		h.AveragePrice = 0
	} else {
		h.AveragePrice = h.TotalCost / float64(remaining)
	}
	return h
}

// Clone returns an independent copy of holdings.
func Clone(holdings map[string]domain.Holding) map[string]domain.Holding {
	if holdings == nil {
		return make(map[string]domain.Holding)
	}
	return maps.Clone(holdings)
}
