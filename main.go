package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"psa-scraper/commands"
)

func main() {
	// Ctrl-C stops the run between listings; files and rows written so far stay valid.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
