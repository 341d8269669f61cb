package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weedkat/trash-separator/hardware/serialbridge"
)

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports the bridge could be on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serialbridge.ListPorts()
			if err != nil && !errors.Is(err, serialbridge.ErrNoUSBSerial) {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range ports {
				fmt.Fprintln(out, p)
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}
}
