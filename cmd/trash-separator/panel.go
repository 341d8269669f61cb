package main

import (
	"github.com/spf13/cobra"

	"github.com/weedkat/trash-separator/config"
	"github.com/weedkat/trash-separator/controller"
	"github.com/weedkat/trash-separator/ui"
)

func panelCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Open the operator panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.load()
			if err != nil {
				return err
			}

			p := ui.New(app, func(cfg config.App, obs controller.Observer) (ui.Machine, func() error, error) {
				s, err := openSession(cfg, controller.WithObserver(obs))
				if err != nil {
					return nil, nil, err
				}
				return s.ctrl, s.Close, nil
			})

			return p.Run(cmd.Context())
		},
	}
}
