package main

import (
	"github.com/spf13/cobra"

	"github.com/weedkat/trash-separator/config"
)

func configCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.load()
			if err != nil {
				return err
			}

			b, err := config.Marshal(app)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
