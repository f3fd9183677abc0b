package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/lldbhost/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := flagConfig
			if _, err := config.FormatOf(path); err != nil {
				path = "config.toml"
			}
			data, err := config.Encode(path, cfg)
			if err != nil {
				return err
			}
			cmd.Print(string(data))
			return nil
		},
	}
}
