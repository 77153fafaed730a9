package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jzx17/superretry/cmd/superretry/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
