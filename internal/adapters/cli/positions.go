package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"stockCalculator/internal/adapters/report"
	"stockCalculator/internal/domain"
)

type removeStockCmd struct {
	env *Env
}

func (*removeStockCmd) Name() string     { return "rm-stock" }
func (*removeStockCmd) Synopsis() string { return "delete a stock with all its transactions" }
func (*removeStockCmd) Usage() string {
	return `stockCalculator rm-stock <stock>

  Deletes the position of <stock> together with every transaction of it.
`
}

func (c *removeStockCmd) SetFlags(*flag.FlagSet) {}

func (c *removeStockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.usage("rm-stock takes exactly 1 argument: <stock>")
	}
	if err := c.env.Store.RemoveStock(ctx, f.Arg(0)); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Removed %s\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type priceCmd struct {
	env *Env
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "set the current market price of a held stock" }
func (*priceCmd) Usage() string {
	return `stockCalculator price <stock> <price>

  Sets the price used to value <stock>. The price is kept until changed, even
  when positions are recomputed.
`
}

func (c *priceCmd) SetFlags(*flag.FlagSet) {}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.env.usage("price takes exactly 2 arguments: <stock> <price>")
	}
	price, err := parsePrice(f.Arg(1))
	if err != nil {
		return c.env.usage("%v", err)
	}
	if err := c.env.Store.SetCurrentPrice(ctx, f.Arg(0), price); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "%s now priced at %s\n", f.Arg(0), report.Money(price))
	return subcommands.ExitSuccess
}

type policyCmd struct {
	env *Env
}

func (*policyCmd) Name() string { return "policy" }
func (*policyCmd) Synopsis() string {
	return "show or change whether realized P&L stays in the average cost"
}
func (*policyCmd) Usage() string {
	return `stockCalculator policy [include|exclude]

  Without argument, prints the current cost basis policy.
  include: a sell reduces the cost basis by its proceeds, realized P&L stays in the average cost.
  exclude: a sell reduces the cost basis by quantity times the average cost.
  Changing the policy recomputes every position.
`
}

func (c *policyCmd) SetFlags(*flag.FlagSet) {}

func (c *policyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch f.NArg() {
	case 0:
		fmt.Fprintf(c.env.Out, "Realized P&L in average cost: %s\n", c.env.Store.Snapshot().Policy)
		return subcommands.ExitSuccess
	case 1:
	default:
		return c.env.usage("policy takes at most 1 argument")
	}

	policy, err := domain.ParseCostBasisPolicy(f.Arg(0))
	if err != nil {
		return c.env.usage("%v", err)
	}
	if err := c.env.Store.SetCostBasisPolicy(ctx, policy); err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.Out, "Realized P&L in average cost: %s\n", policy)
	return subcommands.ExitSuccess
}
