// Package cli implements the stockCalculator subcommands on top of a PortfolioStore.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"stockCalculator/internal/adapters/chart"
	"stockCalculator/internal/app"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/ports"
)

// Env is what every command needs to run.
type Env struct {
	Store *app.PortfolioStore

	In  io.Reader // Bulk text when no file is given
	Out io.Writer
	Err io.Writer

	ExportDir string
	ChartSize chart.Size
	Now       func() time.Time
}

// Register adds every subcommand to c.
// A main package calls Register, then Execute on the user-selected command.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&tradeCmd{env: env, typ: domain.Buy}, "transactions")
	c.Register(&tradeCmd{env: env, typ: domain.Sell}, "transactions")
	c.Register(&removeTxCmd{env: env}, "transactions")
	c.Register(&bulkCmd{env: env}, "transactions")

	c.Register(&removeStockCmd{env: env}, "positions")
	c.Register(&priceCmd{env: env}, "positions")
	c.Register(&policyCmd{env: env}, "positions")

	c.Register(&showCmd{env: env}, "reports")
	c.Register(&historyCmd{env: env}, "reports")
	c.Register(&chartCmd{env: env}, "reports")

	c.Register(&exportCmd{env: env}, "files")
	c.Register(&importCmd{env: env}, "files")
	c.Register(&clearCmd{env: env}, "files")
}

// fail reports err and returns the matching exit status. A missing stock or
// transaction is only a warning: nothing changed.
func (e *Env) fail(err error) subcommands.ExitStatus {
	if errors.Is(err, ports.ErrNotFound) {
		fmt.Fprintf(e.Err, "Warning: %v\n", err)
	} else {
		fmt.Fprintf(e.Err, "Error: %v\n", err)
	}
	return subcommands.ExitFailure
}

func (e *Env) usage(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func parseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil || q <= 0 {
		return 0, fmt.Errorf("quantity must be a positive whole number, got %q", s)
	}
	return q, nil
}

func parsePrice(s string) (float64, error) {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 {
		return 0, fmt.Errorf("price must be a non-negative number, got %q", s)
	}
	return p, nil
}
