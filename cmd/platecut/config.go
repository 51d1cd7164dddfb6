package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/piwi3910/platecut/internal/project"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configWrite bool

var cmdConfig = cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration, or save it with --write.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadSettings(cmd, nil)
		if err != nil {
			return err
		}
		if !configWrite {
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		}
		path := flagConfig
		if path == "" {
			path = project.DefaultConfigPath()
		}
		if err := project.SaveConfig(path, cfg); err != nil {
			return err
		}
		logrus.Infof("wrote %s", path)
		return nil
	},
}

func init() {
	cmdConfig.Flags().BoolVar(&configWrite, "write", false, "save the configuration to the config file")
}
