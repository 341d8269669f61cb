package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weedkat/trash-separator/controller"
)

const prompt = "category> "

func runCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Home, then sort one item per category name read from stdin",
		Long: `Home the machine, then read one category per line from stdin and sort it.
The words "status", "reset" and "quit" are commands instead of categories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(func(s *session) error {
				err := s.ctrl.Start(cmd.Context())
				if err != nil {
					// a faulted machine can still be reset from the loop
					fmt.Fprintf(cmd.ErrOrStderr(), "error homing: %v\n", err)
				}
				return runLoop(cmd.Context(), s.ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

type lineController interface {
	Route(ctx context.Context, category string) error
	Reset(ctx context.Context) error
	Status() controller.Status
}

// runLoop handles one line at a time until quit, the end of in, or ctx is done.
// Failed requests are reported and the loop goes on
func runLoop(ctx context.Context, ctrl lineController, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			fmt.Fprintln(out)
			select {
			case err := <-scanErr:
				return err
			default:
				return nil
			}
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
		case "quit", "exit":
			return nil
		case "status":
			err := printStatus(out, ctrl.Status())
			if err != nil {
				return err
			}
		case "reset":
			err := ctrl.Reset(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "ok: homed")
		default:
			err := ctrl.Route(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "ok: %s (%s)\n", line, ctrl.Status().LastManeuver)
		}
	}
}
