package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/tallybook/taxlot/cmd"
)

// completion describes the CLI for shell completion. Running the completion
// logic first lets 'complete -C tlr tlr' work without touching the log.
func completion() {
	execFlags := map[string]complete.Predictor{
		"id": predict.Nothing, "a": predict.Something, "s": predict.Something,
		"d": predict.Nothing, "seq": predict.Nothing, "q": predict.Nothing,
		"p": predict.Nothing, "c": predict.Nothing, "cur": predict.Something,
	}
	sellFlags := map[string]complete.Predictor{"lots": predict.Something}
	for k, v := range execFlags {
		sellFlags[k] = v
	}

	tlr := &complete.Command{
		Flags: map[string]complete.Predictor{
			"log-file":    predict.Files("*.jsonl"),
			"config-file": predict.Files("*.yaml"),
		},
		Sub: map[string]*complete.Command{
			"buy":  {Flags: execFlags},
			"sell": {Flags: sellFlags},
			"import": {
				Flags: map[string]complete.Predictor{
					"a":       predict.Something,
					"mapping": predict.Files("*.yaml"),
				},
				Args: predict.Files("*.json"),
			},
			"reconcile": {Flags: map[string]complete.Predictor{"o": predict.Files("*.jsonl")}},
			"disposals": {Flags: map[string]complete.Predictor{"a": predict.Something}},
			"gains": {Flags: map[string]complete.Predictor{
				"a": predict.Something, "y": predict.Nothing, "final": predict.Nothing,
			}},
			"lots": {Flags: map[string]complete.Predictor{
				"a": predict.Something, "s": predict.Something,
			}},
		},
	}
	tlr.Complete("tlr")
}

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
