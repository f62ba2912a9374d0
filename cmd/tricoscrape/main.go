package main

import (
	"context"
	"os"
	"os/signal"

	"trico-scraper/cmd/tricoscrape/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	commands.ExecuteContext(ctx)
}
