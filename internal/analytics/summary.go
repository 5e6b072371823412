// Package analytics derives portfolio metrics (valuation, profit, allocation)
// from position snapshots and transaction logs.
package analytics

import (
	"slices"
	"strings"
	"time"

	"stockCalculator/internal/domain"
)

// Summary holds portfolio-level metrics and one row per position.
type Summary struct {
	// Totals
	TotalStocks     int
	TotalInvestment float64 // Sum of cost bases
	TotalValue      float64 // Sum of quantity times current price
	TotalProfit     float64
	ProfitRate      float64 // Percent of TotalInvestment

	Rows []Row // Sorted by stock name
}

// Row holds the metrics of a single position.
type Row struct {
	StockName  string
	Position   domain.Position
	Value      float64
	Profit     float64
	ProfitRate float64 // Percent of TotalCost
	Allocation float64 // Percent of the portfolio's total value
}

// Summarize computes portfolio metrics from positions keyed by stock name.
func Summarize(positions map[string]domain.Position) *Summary {
	s := &Summary{
		TotalStocks: len(positions),
		Rows:        make([]Row, 0, len(positions)),
	}

	for name, pos := range positions {
		value := pos.MarketValue()
		s.TotalInvestment += pos.TotalCost
		s.TotalValue += value

		row := Row{
			StockName: name,
			Position:  pos,
			Value:     value,
			Profit:    value - pos.TotalCost,
		}
		if pos.TotalCost > 0 {
			row.ProfitRate = row.Profit / pos.TotalCost * 100
		}
		s.Rows = append(s.Rows, row)
	}

	s.TotalProfit = s.TotalValue - s.TotalInvestment
	if s.TotalInvestment > 0 {
		s.ProfitRate = s.TotalProfit / s.TotalInvestment * 100
	}

	// Allocation needs the total, so it is filled in a second pass
	for i := range s.Rows {
		if s.TotalValue > 0 {
			s.Rows[i].Allocation = s.Rows[i].Value / s.TotalValue * 100
		}
	}

	slices.SortFunc(s.Rows, func(a, b Row) int {
		return strings.Compare(a.StockName, b.StockName)
	})
	return s
}

// MonthlyActivity is the money moved by buys and sells in one calendar month.
type MonthlyActivity struct {
	Month    time.Time // First day of the month, UTC
	Bought   float64
	Sold     float64
	Trades   int
	NetSpent float64 // Bought minus Sold
}

// ActivityByMonth groups transactions by the UTC month of their timestamp.
// The result is sorted chronologically.
func ActivityByMonth(txs []domain.Transaction) []MonthlyActivity {
	byMonth := make(map[time.Time]*MonthlyActivity)
	for _, t := range txs {
		ts := t.Timestamp.UTC()
		month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyActivity{Month: month}
			byMonth[month] = m
		}
		m.Trades++
		switch t.Type {
		case domain.Buy:
			m.Bought += t.Amount()
		case domain.Sell:
			m.Sold += t.Amount()
		}
		m.NetSpent = m.Bought - m.Sold
	}

	out := make([]MonthlyActivity, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthlyActivity) int {
		return a.Month.Compare(b.Month)
	})
	return out
}
