package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/tallybook/taxlot"
)

// importCmd ingests a broker JSON export into the execution log.
type importCmd struct {
	account string
	mapping string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import executions from a broker JSON export" }
func (*importCmd) Usage() string {
	return `tlr import -a <account> -mapping <mapping.yaml> <export.json>

  Parses a broker export using a jsonpath mapping file and appends the
  executions to the log. Reimporting the same export is harmless: executions
  are deduplicated by id at reconciliation.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account id owning the imported executions")
	f.StringVar(&c.mapping, "mapping", "", "YAML file mapping broker fields to execution fields")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.mapping == "" || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	m, err := taxlot.LoadMapping(c.mapping)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	in, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening export %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	defer in.Close()

	execs, err := taxlot.ImportExecutions(in, c.account, m)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(execs) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: the export contains no executions.")
		return subcommands.ExitSuccess
	}
	return appendExecutions(execs...)
}
