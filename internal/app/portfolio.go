package app

import (
	"maps"

	"stockCalculator/internal/accounting"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/ledger"
	"stockCalculator/internal/ports"
)

// portfolio is the mutable state owned by a PortfolioStore. Mutations are
// applied to a clone and swapped in only after they were persisted.
type portfolio struct {
	log      *ledger.Log
	holdings map[string]domain.Holding
	prices   map[string]float64 // current price overlay, keyed like holdings
	policy   domain.CostBasisPolicy
}

func newPortfolio(policy domain.CostBasisPolicy) *portfolio {
	return &portfolio{
		log:      ledger.New(nil),
		holdings: make(map[string]domain.Holding),
		prices:   make(map[string]float64),
		policy:   policy,
	}
}

func (p *portfolio) clone() *portfolio {
	return &portfolio{
		log:      p.log.Clone(),
		holdings: accounting.Clone(p.holdings),
		prices:   clonePrices(p.prices),
		policy:   p.policy,
	}
}

// recompute refolds the whole log and reconciles the price overlay: saved
// prices survive for stocks still held, new holdings are seeded, vanished
// stocks lose their price.
func (p *portfolio) recompute() error {
	holdings, err := accounting.Fold(p.log.AllSortedByTime(), p.policy)
	if err != nil {
		return err
	}
	p.holdings = holdings
	p.prices = reconcilePrices(p.prices, holdings)
	return nil
}

// apply folds a single transaction on top of the current holdings.
func (p *portfolio) apply(t domain.Transaction) error {
	if err := accounting.Apply(p.holdings, t, p.policy); err != nil {
		return err
	}
	p.log.Append(t)
	if h, ok := p.holdings[t.StockName]; ok {
		if _, priced := p.prices[t.StockName]; !priced {
			p.prices[t.StockName] = h.SeedPrice
		}
	} else {
		delete(p.prices, t.StockName)
	}
	return nil
}

func (p *portfolio) state() *domain.State {
	return &domain.State{
		Holdings:     accounting.Clone(p.holdings),
		Prices:       clonePrices(p.prices),
		Transactions: p.log.Transactions(),
		Policy:       p.policy,
	}
}

func (p *portfolio) snapshot() ports.Snapshot {
	s := p.state()
	return ports.Snapshot{
		Positions:    s.Positions(),
		Transactions: s.Transactions,
		Policy:       s.Policy,
	}
}

func reconcilePrices(saved map[string]float64, holdings map[string]domain.Holding) map[string]float64 {
	out := make(map[string]float64, len(holdings))
	for name, h := range holdings {
		if price, ok := saved[name]; ok {
			out[name] = price
		} else {
			out[name] = h.SeedPrice
		}
	}
	return out
}

func clonePrices(prices map[string]float64) map[string]float64 {
	if prices == nil {
		return make(map[string]float64)
	}
	return maps.Clone(prices)
}
