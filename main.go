package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-uframework/app"
	"github.com/km-arc/go-uframework/framework/config"
)

func main() {
	cfg := config.Load() // loads .env automatically
	kernel := app.NewKernel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kernel.Run(ctx); err != nil {
		logger := kernel.App.Logger()
		logger.Error().Err(err).Msg("application failed")
		stop()
		os.Exit(1)
	}
}
