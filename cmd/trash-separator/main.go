package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// the controller releases both servos on the way out
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}
