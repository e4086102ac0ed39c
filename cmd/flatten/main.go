// Command flatten runs a caching reverse proxy in front of a site and manages
// its cached pages.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/flatten/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
