package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"stockCalculator/internal/adapters/jsoncodec"
	"stockCalculator/internal/utils"
)

type exportCmd struct {
	env    *Env
	output string
	csv    bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write positions and transactions to a JSON file" }
func (*exportCmd) Usage() string {
	return `stockCalculator export [-csv] [-o <file>]

  Writes the export document. Defaults to my_portfolio_<date>.json in the
  export directory; use -o - for standard output. The cost basis policy is
  not part of the export. With -csv, writes the transaction log as CSV
  (my_portfolio_<date>.csv) instead.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, - for standard output")
	f.BoolVar(&c.csv, "csv", false, "export the transaction log as CSV")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.csv {
		return c.exportCSV()
	}
	if c.output == "-" {
		if err := c.env.Store.Export(c.env.Out); err != nil {
			return c.env.fail(err)
		}
		return subcommands.ExitSuccess
	}

	output := c.output
	if output == "" {
		output = filepath.Join(c.env.ExportDir, jsoncodec.ExportFileName(c.env.now()))
	}
	var buf bytes.Buffer
	if err := c.env.Store.Export(&buf); err != nil {
		return c.env.fail(err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return c.env.fail(fmt.Errorf("failed to write export: %w", err))
	}
	fmt.Fprintf(c.env.Out, "Exported to %s\n", output)
	return subcommands.ExitSuccess
}

type importCmd struct {
	env *Env
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the portfolio with an exported JSON file" }
func (*importCmd) Usage() string {
	return `stockCalculator import <file>

  Replaces all transactions and current prices with the content of <file> and
  recomputes positions under the current cost basis policy. Nothing changes
  if the file is malformed.
`
}

func (c *importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage("import takes exactly 1 argument: <file>")
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return c.env.fail(err)
	}
	defer file.Close()

	n, err := c.env.Store.Import(ctx, file)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Imported %d transactions\n", n)
	return subcommands.ExitSuccess
}

type clearCmd struct {
	env *Env
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every transaction and position" }
func (*clearCmd) Usage() string {
	return `stockCalculator clear -yes

  Deletes all transactions, positions and prices. The cost basis policy is kept.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm the deletion")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		return c.env.usage("clear deletes everything, pass -yes to confirm")
	}
	if err := c.env.Store.ClearAll(ctx); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintln(c.env.Out, "Portfolio cleared")
	return subcommands.ExitSuccess
}

func (c *exportCmd) exportCSV() subcommands.ExitStatus {
	txs := c.env.Store.Snapshot().Transactions
	if c.output == "-" {
		if err := utils.WriteTransactionsCSV(c.env.Out, txs); err != nil {
			return c.env.fail(err)
		}
		return subcommands.ExitSuccess
	}

	output := c.output
	if output == "" {
		name := strings.TrimSuffix(jsoncodec.ExportFileName(c.env.now()), ".json") + ".csv"
		output = filepath.Join(c.env.ExportDir, name)
	}
	if err := utils.WriteTransactionsCSVFile(output, txs); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Exported %d transactions to %s\n", len(txs), output)
	return subcommands.ExitSuccess
}
