package main

import (
	"fmt"

	"github.com/piwi3910/platecut/internal/checker"
	"github.com/piwi3910/platecut/internal/project"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkDefects string

var cmdCheck = cobra.Command{
	Use:   "check <batch> <solution.json>",
	Short: "Verify that a solution can be cut.",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		file, err := project.LoadSolution(args[1])
		if err != nil {
			return err
		}
		problem, err := loadProblem(args[0], checkDefects, file.Params)
		if err != nil {
			return err
		}

		violations := checker.Check(problem, file.Params, file.Solution)
		for _, v := range violations {
			logrus.Warn(v)
		}
		if len(violations) > 0 {
			return fmt.Errorf("%s: %d violations", args[1], len(violations))
		}
		logrus.Infof("%s: %d plates, %d items, valid", args[1], len(file.Solution.Plates), file.Solution.ItemCount())
		return nil
	},
}

func init() {
	cmdCheck.Flags().StringVar(&checkDefects, "defects", "", "defects file (CSV or DXF)")
}
