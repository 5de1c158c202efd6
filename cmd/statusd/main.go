// Command statusd evaluates configured dependencies and serves status
// reports over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, errOutage):
		stop()
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "statusd:", err)
		stop()
		os.Exit(1)
	}
}
