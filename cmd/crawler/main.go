// Package main contains the entrypoint for the restaurant crawler CLI.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/edgard/what2eat/cmd/crawler/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
