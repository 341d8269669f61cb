package main

import (
	"github.com/spf13/cobra"

	"github.com/weedkat/trash-separator/server"
)

func serveCmd(o *globalOptions) *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Home, then accept sorting requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(func(s *session) error {
				if addr == "" {
					addr = s.app.HTTP.Addr
				}

				err := s.ctrl.Start(cmd.Context())
				if err != nil {
					s.logger.Error("homing failed, POST /reset to retry", "error", err)
				}

				e := server.New(s.ctrl, s.logger)
				s.logger.Info("listening", "addr", addr)
				return server.Serve(cmd.Context(), e, addr)
			})
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config file)")
	return c
}
