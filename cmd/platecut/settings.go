package main

import (
	"fmt"

	"github.com/piwi3910/platecut/internal/model"
	"github.com/piwi3910/platecut/internal/project"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// packFlags are the command-line overrides of the configuration.
type packFlags struct {
	defects     string
	plates      int
	rowMode     string
	cutMode     string
	plateMode   string
	earlyCancel bool
	trace       bool
}

func (f *packFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.defects, "defects", "", "defects file (CSV or DXF)")
	fs.IntVar(&f.plates, "plates", 0, "plate budget")
	fs.StringVar(&f.rowMode, "row", "", "row packing mode: approximate, exact or diagnose")
	fs.StringVar(&f.cutMode, "cut", "", "cut packing mode: approximate, exact or diagnose")
	fs.StringVar(&f.plateMode, "plate", "", "plate packing mode: approximate, exact or diagnose")
	fs.BoolVar(&f.earlyCancel, "early-cancel", true, "reuse unchanged plates of --previous")
	fs.BoolVar(&f.trace, "trace-fronts", false, "log Pareto front sizes (with --verbose)")
}

// loadSettings resolves the configuration: defaults, then the config file,
// then the machine profile, then flags set on the command line.
func loadSettings(cmd *cobra.Command, f *packFlags) (model.Config, error) {
	path := flagConfig
	if path == "" {
		path = project.DefaultConfigPath()
	}
	cfg, err := project.LoadConfig(path)
	if err != nil {
		return model.Config{}, err
	}
	logrus.Debugf("configuration from %s", path)

	if flagMachine != "" {
		custom, err := project.LoadCustomProfiles(project.DefaultProfilesPath())
		if err != nil {
			return model.Config{}, fmt.Errorf("loading machine profiles: %w", err)
		}
		profile, err := project.FindProfile(flagMachine, custom)
		if err != nil {
			return model.Config{}, err
		}
		plates := cfg.Params.PlateCount
		cfg.Params = profile.Params
		if profile.Params.PlateCount == 0 {
			cfg.Params.PlateCount = plates
		}
		logrus.Debugf("machine profile %s: %s", profile.Name, profile.Description)
	}

	if f != nil {
		if err := applyFlags(cmd.Flags(), f, &cfg); err != nil {
			return model.Config{}, err
		}
	}
	if err := cfg.Params.Validate(); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, f *packFlags, cfg *model.Config) error {
	if flags.Changed("plates") {
		cfg.Params.PlateCount = f.plates
	}
	modes := []struct {
		name  string
		value string
		dst   *model.Mode
	}{
		{"row", f.rowMode, &cfg.Options.RowMode},
		{"cut", f.cutMode, &cfg.Options.CutMode},
		{"plate", f.plateMode, &cfg.Options.PlateMode},
	}
	for _, m := range modes {
		if !flags.Changed(m.name) {
			continue
		}
		mode, err := model.ParseMode(m.value)
		if err != nil {
			return fmt.Errorf("--%s: %w", m.name, err)
		}
		*m.dst = mode
	}
	if flags.Changed("early-cancel") {
		cfg.Options.EarlyCancel = f.earlyCancel
	}
	if flags.Changed("trace-fronts") {
		cfg.Options.TraceFronts = f.trace
	}
	return nil
}
