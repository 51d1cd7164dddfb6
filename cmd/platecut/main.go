// platecut packs rectangular items onto plates with a three-stage
// guillotine cutter.
//
// Build:
//
//	go build -o platecut ./cmd/platecut
//
// Usage:
//
//	platecut pack batch.csv --defects defects.csv -o out/solution --pdf --dxf
//	platecut check batch.csv out/solution.json --defects defects.csv
//	platecut compare batch.csv --defects defects.csv
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/piwi3910/platecut/internal/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagMachine string
	flagVerbose bool
)

var cmdRoot = cobra.Command{
	Use:           "platecut",
	Short:         "platecut packs rectangular items onto plates for a three-stage guillotine cutter.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
			engine.SetLogger(slog.New(handler))
		}
	},
}

func main() {
	pf := cmdRoot.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default is $XDG_CONFIG_HOME/platecut/config.toml)")
	pf.StringVar(&flagMachine, "machine", "", "machine profile name (jumbo, half, bench or a custom profile)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log engine progress to stderr")

	cmdRoot.AddCommand(&cmdPack, &cmdCheck, &cmdCompare, &cmdConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		stop()
		os.Exit(1)
	}
}
