package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/piwi3910/platecut/internal/engine"
	"github.com/spf13/cobra"
)

var compareOpts packFlags

var cmdCompare = cobra.Command{
	Use:   "compare <batch>",
	Short: "Pack a batch with approximate and exact layers and compare the results.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd, &compareOpts)
		if err != nil {
			return err
		}
		problem, err := loadProblem(args[0], compareOpts.defects, cfg.Params)
		if err != nil {
			return err
		}

		scenarios := engine.BuildDefaultScenarios(cfg.Options)
		results := engine.CompareScenarios(cmd.Context(), cfg.Params, problem, nil, scenarios)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCENARIO\tROW\tCUT\tPLATE\tPLATES\tPLACED\tLEFT\tEFFICIENCY")
		for _, r := range results {
			o := r.Scenario.Options
			if r.Err != nil {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\terror: %v\n", r.Scenario.Name, o.RowMode, o.CutMode, o.PlateMode, r.Err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%.2f%%\n", r.Scenario.Name, o.RowMode, o.CutMode, o.PlateMode,
				r.PlatesUsed, r.Stats.Placed, r.Stats.Remaining, r.Efficiency)
		}
		return w.Flush()
	},
}

func init() {
	compareOpts.register(cmdCompare.Flags())
}
