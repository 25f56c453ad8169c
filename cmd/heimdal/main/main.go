package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/limistah/heimdal/cmd/heimdal"
)

func main() {
	// Interrupts cancel lock retries and remote fetches in flight.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := heimdal.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
