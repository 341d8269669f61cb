package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/controller"
)

func routeCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <category>",
		Short: "Sort one item of a waste category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(func(s *session) error {
				err := s.ctrl.Route(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), s.ctrl.Status())
			})
		},
	}
}

func maneuverCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "maneuver <name>",
		Short:     "Run one dump maneuver directly",
		Args:      cobra.ExactArgs(1),
		ValidArgs: maneuverNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := trashseparator.ParseManeuver(args[0])
			if err != nil {
				return err
			}

			return o.withSession(func(s *session) error {
				err := s.ctrl.Execute(cmd.Context(), m)
				if err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), s.ctrl.Status())
			})
		},
	}
}

func homeCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Bring both axes to their default position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(func(s *session) error {
				err := s.ctrl.Start(cmd.Context())
				if err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), s.ctrl.Status())
			})
		},
	}
}

func resetCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Re-home the machine from any state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(func(s *session) error {
				err := s.ctrl.Reset(cmd.Context())
				if err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), s.ctrl.Status())
			})
		},
	}
}

func jogCmd(o *globalOptions) *cobra.Command {
	var axis, preset string
	var d time.Duration

	c := &cobra.Command{
		Use:   "jog",
		Short: "Spin one axis at a preset for a while, then stop it (for calibration)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := controller.ParseAxisID(axis)
			if err != nil {
				return err
			}

			p, err := controller.ParsePreset(preset)
			if err != nil {
				return err
			}

			return o.withSession(func(s *session) error {
				err := s.ctrl.Jog(cmd.Context(), id, p, d)
				if err != nil {
					return err
				}
				return printStatus(cmd.OutOrStdout(), s.ctrl.Status())
			})
		},
	}

	c.Flags().StringVarP(&axis, "axis", "a", string(controller.AxisTop), "top or bottom")
	c.Flags().StringVarP(&preset, "preset", "p", controller.PresetSlowCW.String(), "speed preset, e.g. slow_cw or fast_ccw")
	c.Flags().DurationVarP(&d, "for", "d", 500*time.Millisecond, "how long to spin before stopping")

	return c
}

func categoriesCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories and the maneuver each one runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.load()
			if err != nil {
				return err
			}

			d, err := controller.NewDispatcher(app.Controller.Routes)
			if err != nil {
				return err
			}

			for _, category := range d.Categories() {
				m, err := d.Resolve(category)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", category, m)
			}
			return nil
		},
	}
}

func printStatus(w io.Writer, status controller.Status) error {
	b, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func maneuverNames() []string {
	names := make([]string, 0, len(trashseparator.Maneuvers))
	for _, m := range trashseparator.Maneuvers {
		names = append(names, m.String())
	}
	return names
}
