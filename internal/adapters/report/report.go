// Package report renders portfolio snapshots as plain-text tables.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"stockCalculator/internal/adapters/jsoncodec"
	"stockCalculator/internal/analytics"
	"stockCalculator/internal/domain"
)

// Currency every amount is displayed in. Multi-currency portfolios are not supported.
const Currency = money.USD

// Money formats v as a dollar amount rounded to cents, e.g. "$1,234.50" or "-$3.00".
func Money(v float64) string {
	cur := money.GetCurrency(Currency)
	fraction := int32(cur.Fraction)
	cents := decimal.NewFromFloat(v).Round(fraction).Shift(fraction).IntPart()
	return cur.Formatter().Format(cents)
}

// Percent formats a percentage with two decimals and an explicit sign.
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// Summary writes one row per position followed by the portfolio totals.
func Summary(w io.Writer, s *analytics.Summary, policy domain.CostBasisPolicy) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Stock\tQty\tAvg Price\tCurrent\tCost\tValue\tProfit\tRate\tAlloc\t")
	for _, r := range s.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f%%\t\n",
			r.StockName,
			r.Position.TotalQuantity,
			Money(r.Position.AveragePrice),
			Money(r.Position.CurrentPrice),
			Money(r.Position.TotalCost),
			Money(r.Value),
			Money(r.Profit),
			Percent(r.ProfitRate),
			r.Allocation,
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nStocks: %d   Invested: %s   Value: %s   Profit: %s (%s)\nRealized P&L in average cost: %s\n",
		s.TotalStocks,
		Money(s.TotalInvestment),
		Money(s.TotalValue),
		Money(s.TotalProfit),
		Percent(s.ProfitRate),
		policy,
	)
	return err
}

// History writes transactions in the order given.
func History(w io.Writer, txs []domain.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tDate\tStock\tType\tQty\tPrice\tAmount\t")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t\n",
			t.ID,
			jsoncodec.FormatDate(t.Timestamp),
			t.StockName,
			t.Type,
			t.Quantity,
			Money(t.Price),
			Money(t.Amount()),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Activity writes the monthly buy and sell totals.
func Activity(w io.Writer, months []analytics.MonthlyActivity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tTrades\tBought\tSold\tNet\t")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			m.Month.Format("2006-01"), m.Trades, Money(m.Bought), Money(m.Sold), Money(m.NetSpent))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write activity: %w", err)
	}
	return nil
}
