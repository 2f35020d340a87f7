package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptokatze/backpack-volume-bot/internal/app"
	"github.com/cryptokatze/backpack-volume-bot/internal/execution"
	"github.com/cryptokatze/backpack-volume-bot/internal/infra"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	infra.PrintBanner(bootstrap.Config)

	exchange, err := execution.NewExchange(bootstrap.Config)
	if err != nil {
		slog.Error("Exchange setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer exchange.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := app.NewSession(bootstrap.Config, exchange, bootstrap.Journal, os.Stdin)
	if err != nil {
		slog.Error("Session setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	session.Loop(ctx)

	slog.Info("Shutting down")
}
