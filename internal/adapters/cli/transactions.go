package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/subcommands"

	"stockCalculator/internal/adapters/report"
	"stockCalculator/internal/domain"
)

// tradeCmd records a buy or a sell, depending on typ.
type tradeCmd struct {
	env *Env
	typ domain.TransactionType
}

func (c *tradeCmd) Name() string { return string(c.typ) }
func (c *tradeCmd) Synopsis() string {
	return fmt.Sprintf("record a %s transaction stamped with the current time", c.typ)
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`stockCalculator %s <stock> <quantity> <price>

  Records a %s of <quantity> shares of <stock> at <price> dollars per share.
`, c.typ, c.typ)
}

func (c *tradeCmd) SetFlags(*flag.FlagSet) {}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		return c.env.usage("%s takes exactly 3 arguments: <stock> <quantity> <price>", c.typ)
	}
	qty, err := parseQuantity(f.Arg(1))
	if err != nil {
		return c.env.usage("%v", err)
	}
	price, err := parsePrice(f.Arg(2))
	if err != nil {
		return c.env.usage("%v", err)
	}

	t, err := c.env.Store.AddTransaction(ctx, f.Arg(0), qty, price, c.typ)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Recorded %s #%d: %d %s @ %s\n", t.Type, t.ID, t.Quantity, t.StockName, report.Money(t.Price))
	return subcommands.ExitSuccess
}

type removeTxCmd struct {
	env *Env
}

func (*removeTxCmd) Name() string     { return "rm-tx" }
func (*removeTxCmd) Synopsis() string { return "delete a transaction and recompute positions" }
func (*removeTxCmd) Usage() string {
	return `stockCalculator rm-tx <id>

  Deletes the transaction with the given id. The removal is refused if a later
  sell would then exceed the shares held.
`
}

func (c *removeTxCmd) SetFlags(*flag.FlagSet) {}

func (c *removeTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage("rm-tx takes exactly 1 argument: <id>")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil {
		return c.env.usage("invalid transaction id %q", f.Arg(0))
	}
	if err := c.env.Store.RemoveTransaction(ctx, id); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Removed transaction #%d\n", id)
	return subcommands.ExitSuccess
}

type bulkCmd struct {
	env   *Env
	stock string
	file  string
}

func (*bulkCmd) Name() string     { return "bulk" }
func (*bulkCmd) Synopsis() string { return "import pasted brokerage history for one stock" }
func (*bulkCmd) Usage() string {
	return `stockCalculator bulk -s <stock> [-f <file>]

  Parses brokerage history text (date lines like "8.19", trade lines like
  "구매 8주" and price lines like "주당 $77.76") and adds every transaction
  found. Reads standard input when no file is given. Dates use the current year.
`
}

func (c *bulkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.stock, "s", "", "Stock the history belongs to (required)")
	f.StringVar(&c.file, "f", "-", "File holding the history text, - for standard input")
}

func (c *bulkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.stock == "" {
		return c.env.usage("-s <stock> is required")
	}

	var r io.Reader = c.env.In
	if c.file != "-" {
		file, err := os.Open(c.file)
		if err != nil {
			return c.env.fail(err)
		}
		defer file.Close()
		r = file
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return c.env.fail(fmt.Errorf("failed to read history text: %w", err))
	}

	n, err := c.env.Store.BulkImport(ctx, string(text), c.stock)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Imported %d transactions for %s\n", n, c.stock)
	return subcommands.ExitSuccess
}
