package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"perfect-slate/app"
	"perfect-slate/config"
	"perfect-slate/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Configure(cfg.ToLoggingConfig())
	defer logging.Sync()
	cfg.LogConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		logging.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logging.Errorf("%v", err)
		a.Close()
		os.Exit(1)
	}
}
