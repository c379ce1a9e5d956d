package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"
	"github.com/tallybook/taxlot"
)

// reconcileCmd runs a full reconciliation pass and reports the outcome.
type reconcileCmd struct {
	out string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "derive lots and disposals from the execution log" }
func (*reconcileCmd) Usage() string {
	return `tlr reconcile [-o <disposals.jsonl>]

  Replays the whole execution log: matches sells against lots, detects wash
  sales, and classifies gains. The run is deterministic, so rerunning over an
  unchanged log writes a byte-identical disposal table.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "Write the disposal table to this file (JSONL), instead of stdout")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	exlog, err := DecodeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	r := taxlot.NewReconciler(exlog, cfg)
	report, err := r.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Reconciled %d executions into %d disposals (%d wash sales, %d pending).\n",
		report.Executions, report.Disposals, report.WashSales, report.Pending)
	if len(report.Duplicates) > 0 {
		fmt.Printf("Skipped %d duplicate submission(s).\n", len(report.Duplicates))
	}
	if len(report.NeedsReview) > 0 {
		keys := make([]string, 0, len(report.NeedsReview))
		for k := range report.NeedsReview {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(os.Stderr, "The following positions need manual review:")
		for _, k := range keys {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", k, report.NeedsReview[k])
		}
	}

	out := os.Stdout
	if c.out != "" {
		file, err := os.Create(c.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.out, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}
	if err := r.Table().Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(report.NeedsReview) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
