package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/taxlot"
)

// executionFlags are the flags shared by the buy and sell commands.
type executionFlags struct {
	id         string
	account    string
	symbol     string
	date       string
	seq        int64
	quantity   float64
	price      float64
	commission float64
	currency   string
}

func (c *executionFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Execution id, the idempotency key. Generated when omitted.")
	f.StringVar(&c.account, "a", "", "Account id")
	f.StringVar(&c.symbol, "s", "", "Security symbol")
	f.StringVar(&c.date, "d", taxlot.Today().String(), "Execution date (YYYY-MM-DD)")
	f.Int64Var(&c.seq, "seq", 0, "Same-day ordering sequence number")
	f.Float64Var(&c.quantity, "q", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share")
	f.Float64Var(&c.commission, "c", 0, "Total commission")
	f.StringVar(&c.currency, "cur", "USD", "Currency code")
}

func (c *executionFlags) parse(f *flag.FlagSet) (taxlot.Date, subcommands.ExitStatus) {
	if c.account == "" || c.symbol == "" || c.quantity <= 0 || c.price <= 0 {
		f.Usage()
		return taxlot.Date{}, subcommands.ExitUsageError
	}
	on, err := taxlot.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return taxlot.Date{}, subcommands.ExitUsageError
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	return on, subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct{ executionFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase opening or adding to a position" }
func (*buyCmd) Usage() string {
	return `tlr buy -a <account> -s <symbol> -q <quantity> -p <price> [-d <date>] [-c <commission>] [-id <id>]

  Appends a BUY execution to the log. The commission is folded into the cost
  basis of the new lot at reconciliation.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, status := c.parse(f)
	if status != subcommands.ExitSuccess {
		return status
	}
	e := taxlot.NewBuy(c.id, c.account, c.symbol, on, c.seq,
		taxlot.Q(c.quantity), taxlot.M(c.price, c.currency), taxlot.M(c.commission, c.currency))
	return appendExecutions(e)
}

// --- Sell Command ---

type sellCmd struct {
	executionFlags
	lots string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale trimming or closing a position" }
func (*sellCmd) Usage() string {
	return `tlr sell -a <account> -s <symbol> -q <quantity> -p <price> [-d <date>] [-c <commission>] [-lots <lot=qty,...>]

  Appends a SELL execution to the log. With -lots the sale is matched by
  specific identification against the designated lots; otherwise the account's
  configured method (FIFO by default) decides.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.lots, "lots", "", "Specific-identification plan, as lotID=quantity pairs separated by commas")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, status := c.parse(f)
	if status != subcommands.ExitSuccess {
		return status
	}
	e := taxlot.NewSell(c.id, c.account, c.symbol, on, c.seq,
		taxlot.Q(c.quantity), taxlot.M(c.price, c.currency), taxlot.M(c.commission, c.currency))
	if c.lots != "" {
		plan, err := parseLotPlan(c.lots)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -lots: %v\n", err)
			return subcommands.ExitUsageError
		}
		e = e.WithLots(plan...)
	}
	return appendExecutions(e)
}

// parseLotPlan parses "lotID=quantity,lotID=quantity" into a lot plan.
func parseLotPlan(s string) ([]taxlot.LotSlice, error) {
	var plan []taxlot.LotSlice
	for _, pair := range strings.Split(s, ",") {
		id, qty, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("%q is not a lotID=quantity pair", pair)
		}
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", pair, err)
		}
		plan = append(plan, taxlot.LotSlice{LotID: id, Quantity: taxlot.Q(d)})
	}
	return plan, nil
}
