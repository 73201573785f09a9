package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/chessgraph/experience/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
