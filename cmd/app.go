// Package cmd implements the CLI application to maintain an execution log and
// reconcile it into tax lots and disposals.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/tallybook/taxlot"
)

// Register the subcommands.
// A main package calls Register() to install them, and Execute() on the
// user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&buyCmd{}, "executions")
	c.Register(&sellCmd{}, "executions")
	c.Register(&importCmd{}, "executions")

	c.Register(&reconcileCmd{}, "reconciliation")
	c.Register(&disposalsCmd{}, "reconciliation")
	c.Register(&gainsCmd{}, "reconciliation")
	c.Register(&lotsCmd{}, "reconciliation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to
// use global variables.

var logFile = flag.String("log-file", "executions.jsonl", "Path to the execution log file (JSONL format)")
var configFile = flag.String("config-file", "", "Path to the accounting configuration file (YAML)")

// DecodeLog reads the app execution log. A missing file is an empty log, so
// that the first 'buy' works on a fresh directory.
func DecodeLog() (*taxlot.Log, error) {
	f, err := os.Open(*logFile)
	if errors.Is(err, fs.ErrNotExist) {
		return taxlot.NewLog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open execution log %q: %w", *logFile, err)
	}
	defer f.Close()
	return taxlot.DecodeLog(f)
}

// LoadConfig reads the app configuration, or the default FIFO configuration
// when no file is given.
func LoadConfig() (*taxlot.Config, error) {
	if *configFile == "" {
		return taxlot.DefaultConfig(), nil
	}
	return taxlot.LoadConfig(*configFile)
}

// appendExecutions appends executions to the app execution log file.
func appendExecutions(execs ...taxlot.Execution) subcommands.ExitStatus {
	f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening execution log %q: %v\n", *logFile, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	for _, e := range execs {
		if err := e.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		if err := taxlot.EncodeExecution(f, e); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to execution log %q: %v\n", *logFile, err)
			return subcommands.ExitFailure
		}
	}
	fmt.Printf("Successfully appended %d execution(s) to %s\n", len(execs), *logFile)
	return subcommands.ExitSuccess
}

// printMarkdown renders a markdown report for the terminal, falling back to
// the raw markdown when rendering fails.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
