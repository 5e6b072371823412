package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"stockCalculator/internal/adapters/chart"
	"stockCalculator/internal/adapters/report"
	"stockCalculator/internal/analytics"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/utils"
)

type showCmd struct {
	env      *Env
	activity bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display positions, profit and allocation" }
func (*showCmd) Usage() string {
	return `stockCalculator show [-activity]

  Displays every position with its average cost, value, profit and share of
  the portfolio, followed by the portfolio totals.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.activity, "activity", false, "also display money bought and sold per month")
}

func (c *showCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	snap := c.env.Store.Snapshot()
	if len(snap.Positions) == 0 {
		fmt.Fprintln(c.env.Out, "No positions.")
	} else if err := report.Summary(c.env.Out, analytics.Summarize(snap.Positions), snap.Policy); err != nil {
		return c.env.fail(err)
	}

	if c.activity && len(snap.Transactions) > 0 {
		fmt.Fprintln(c.env.Out)
		if err := report.Activity(c.env.Out, analytics.ActivityByMonth(snap.Transactions)); err != nil {
			return c.env.fail(err)
		}
	}
	return subcommands.ExitSuccess
}

type historyCmd struct {
	env *Env
	csv bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list transactions" }
func (*historyCmd) Usage() string {
	return `stockCalculator history [-csv] [<stock>]

  Lists all transactions in the order they were recorded, or the transactions
  of <stock> newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.csv, "csv", false, "write CSV instead of a table")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var txs []domain.Transaction
	switch f.NArg() {
	case 0:
		txs = c.env.Store.Snapshot().Transactions
	case 1:
		txs = c.env.Store.StockHistory(f.Arg(0))
	default:
		return c.env.usage("history takes at most 1 argument: <stock>")
	}

	if c.csv {
		if err := utils.WriteTransactionsCSV(c.env.Out, txs); err != nil {
			return c.env.fail(err)
		}
		return subcommands.ExitSuccess
	}
	if len(txs) == 0 {
		fmt.Fprintln(c.env.Out, "No transactions.")
		return subcommands.ExitSuccess
	}
	if err := report.History(c.env.Out, txs); err != nil {
		return c.env.fail(err)
	}
	return subcommands.ExitSuccess
}

type chartCmd struct {
	env    *Env
	output string
	width  int
	height int
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render the allocation donut chart as PNG" }
func (*chartCmd) Usage() string {
	return `stockCalculator chart [-o <file>] [-width <px>] [-height <px>]

  Renders each position's share of the portfolio value. Defaults to
  allocation.png in the export directory.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output PNG file")
	f.IntVar(&c.width, "width", c.env.ChartSize.Width, "Image width in pixels")
	f.IntVar(&c.height, "height", c.env.ChartSize.Height, "Image height in pixels")
}

func (c *chartCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.width <= 0 || c.height <= 0 {
		return c.env.usage("chart size must be positive, got %dx%d", c.width, c.height)
	}
	output := c.output
	if output == "" {
		output = filepath.Join(c.env.ExportDir, "allocation.png")
	}

	snap := c.env.Store.Snapshot()
	var buf bytes.Buffer
	if err := chart.RenderAllocation(&buf, analytics.Summarize(snap.Positions), chart.Size{Width: c.width, Height: c.height}); err != nil {
		return c.env.fail(err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return c.env.fail(fmt.Errorf("failed to write chart: %w", err))
	}
	fmt.Fprintf(c.env.Out, "Chart written to %s\n", output)
	return subcommands.ExitSuccess
}
