package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/platecut/internal/engine"
	"github.com/piwi3910/platecut/internal/export"
	"github.com/piwi3910/platecut/internal/importer"
	"github.com/piwi3910/platecut/internal/model"
	"github.com/piwi3910/platecut/internal/project"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	packOpts     packFlags
	packOut      string
	packPrevious string
	packStart    int
	packSequence []int
	packPDF      bool
	packLabels   bool
	packDXF      bool
)

var cmdPack = cobra.Command{
	Use:   "pack <batch>",
	Short: "Pack a batch of items onto plates.",
	Long: `Pack reads a batch (ROADEF CSV or Excel) and optional defects, packs the
items in sequence order and writes <out>.csv and <out>.json. The JSON file
can be passed back with --previous to reuse unchanged plates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd, &packOpts)
		if err != nil {
			return err
		}
		problem, err := loadProblem(args[0], packOpts.defects, cfg.Params)
		if err != nil {
			return err
		}

		req := engine.Request{Problem: problem, Sequence: packSequence, Start: packStart}
		if packPrevious != "" {
			prev, err := project.LoadSolution(packPrevious)
			if err != nil {
				return err
			}
			if prev.Reusable(cfg.Params, cfg.Options) {
				req.Previous = prev.Solution
			} else {
				logrus.Warnf("%s was packed with other settings, packing from scratch", packPrevious)
			}
		}

		sol, stats, err := engine.New(cfg.Params, cfg.Options).Pack(cmd.Context(), req)
		if err != nil {
			var ie *engine.InvariantError
			if errors.As(err, &ie) {
				return fmt.Errorf("internal error, please report it: %w", err)
			}
			return err
		}

		logrus.Infof("%s: %d plates (%d reused), %d items placed, %d left, efficiency %.1f%%",
			stats.State, len(sol.Plates), stats.Reused, stats.Placed, stats.Remaining, sol.Efficiency())
		if residual, ok := sol.Residual(cfg.Params); ok {
			logrus.Infof("residual %v on plate %d", residual, len(sol.Plates)-1)
		}
		if stats.State == engine.StateStalled || stats.State == engine.StateOutOfPlates {
			logrus.Warnf("packing stopped early (%s)", stats.State)
		}

		return writeOutputs(problem, cfg, sol)
	},
}

func init() {
	fs := cmdPack.Flags()
	packOpts.register(fs)
	fs.StringVarP(&packOut, "out", "o", "solution", "output path without extension")
	fs.StringVar(&packPrevious, "previous", "", "earlier solution JSON to reuse plates from")
	fs.IntVar(&packStart, "start", 0, "sequence offset to start packing from")
	fs.IntSliceVar(&packSequence, "sequence", nil, "item ids in packing order (default: stack order)")
	fs.BoolVar(&packPDF, "pdf", false, "write a PDF drawing of every plate")
	fs.BoolVar(&packLabels, "labels", false, "write QR item labels (also enabled by label_pdf in the config)")
	fs.BoolVar(&packDXF, "dxf", false, "write a DXF drawing of the cuts")
}

func loadProblem(batch, defects string, params model.Params) (*model.Problem, error) {
	problem, warnings, err := importer.Load(batch, defects, params)
	for _, w := range warnings {
		logrus.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	logrus.Debugf("%d items in %d stacks", len(problem.Items), len(problem.Stacks))
	return problem, nil
}

func writeOutputs(problem *model.Problem, cfg model.Config, sol *model.Solution) error {
	if dir := filepath.Dir(packOut); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	outputs := []struct {
		enabled bool
		ext     string
		write   func(path string) error
	}{
		{true, ".csv", func(path string) error { return export.ExportCSV(path, sol, cfg.Params) }},
		{true, ".json", func(path string) error { return project.SaveSolution(path, sol, cfg.Params, cfg.Options) }},
		{packPDF, ".pdf", func(path string) error { return export.ExportPDF(path, problem, cfg.Params, sol) }},
		{packLabels || cfg.LabelPDF, "-labels.pdf", func(path string) error { return export.ExportLabels(path, problem, sol) }},
		{packDXF, ".dxf", func(path string) error { return export.ExportDXF(path, problem, cfg.Params, sol) }},
	}
	for _, o := range outputs {
		if !o.enabled {
			continue
		}
		path := packOut + o.ext
		if len(sol.Plates) == 0 && o.ext != ".csv" && o.ext != ".json" {
			logrus.Warnf("no plates, skipping %s", path)
			continue
		}
		if err := o.write(path); err != nil {
			return err
		}
		logrus.Infof("wrote %s", path)
	}
	return nil
}
