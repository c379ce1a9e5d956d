package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/tallybook/taxlot"
	"github.com/tallybook/taxlot/renderer"
)

// reconcileTable loads the log and configuration and runs one reconciliation,
// returning the resulting table. The report commands all start from here.
func reconcileTable(ctx context.Context) (*taxlot.Table, error) {
	exlog, err := DecodeLog()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	r := taxlot.NewReconciler(exlog, cfg)
	if _, err := r.Run(ctx); err != nil {
		return nil, err
	}
	return r.Table(), nil
}

// --- Disposals Command ---

type disposalsCmd struct {
	account string
}

func (*disposalsCmd) Name() string     { return "disposals" }
func (*disposalsCmd) Synopsis() string { return "realized disposals report for an account" }
func (*disposalsCmd) Usage() string {
	return `tlr disposals -a <account>

  Reconciles the log and renders the account's realized disposals, with their
  wash-sale pairings and any amended records.
`
}

func (c *disposalsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id to report on")
}

func (c *disposalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	table, err := reconcileTable(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.DisposalsMarkdown(table, c.account))
	return subcommands.ExitSuccess
}

// --- Gains Command ---

type gainsCmd struct {
	account string
	year    int
	final   bool
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "per-year realized gains summary" }
func (*gainsCmd) Usage() string {
	return `tlr gains -a <account> [-y <year>] [-final]

  Summarizes short-term and long-term adjusted gains of one tax year. With
  -final the command fails if any disposal of the year is still inside its
  wash-sale replacement window.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id to report on")
	f.IntVar(&c.year, "y", time.Now().Year(), "Tax year")
	f.BoolVar(&c.final, "final", false, "Fail unless every disposal of the year is final")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	table, err := reconcileTable(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if c.final {
		if err := table.RequireFinal(c.year); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}
	printMarkdown(renderer.GainsMarkdown(taxlot.Summarize(table, c.account, c.year)))
	return subcommands.ExitSuccess
}

// --- Lots Command ---

type lotsCmd struct {
	account string
	symbol  string
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "open tax lots of a position" }
func (*lotsCmd) Usage() string {
	return `tlr lots -a <account> -s <symbol>

  Reconciles the log and lists the open lots of one position, with their
  remaining quantities and adjusted cost basis. Lot ids from this report feed
  the 'sell -lots' specific-identification plan.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id")
	f.StringVar(&c.symbol, "s", "", "Security symbol")
}

func (c *lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.symbol == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	table, err := reconcileTable(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.LotsMarkdown(c.account, c.symbol, table.OpenLots(c.account, c.symbol)))
	return subcommands.ExitSuccess
}
