// Headless smoke run: one simulated cycle end to end, no terminal, no
// network. Useful for checking the wiring after refactors.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/cryptokatze/backpack-volume-bot/internal/engine"
	"github.com/cryptokatze/backpack-volume-bot/internal/execution"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	sim := execution.NewSimulatedExchange()
	controller := engine.NewCycleController(sim, nil, func(p engine.Progress) {
		slog.Info("progress",
			slog.String("state", p.State.String()),
			slog.Int("set", p.Set),
			slog.Int("executed", p.LegsExecuted),
			slog.Int("failed", p.LegsFailed))
	})

	cfg := domain.RunConfig{
		Symbol:     "SOL",
		Quantity:   decimal.RequireFromString("0.01"),
		LegsPerSet: 2,
		SetCount:   2,
		WaitMin:    100 * time.Millisecond,
		WaitMax:    300 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := controller.Run(ctx, cfg)
	if err != nil {
		slog.Error("smoke run failed", slog.Any("error", err))
		os.Exit(1)
	}

	expected := cfg.SetCount * cfg.LegsPerSet * 2
	if report.LegsExecuted != expected {
		slog.Error("unexpected leg count",
			slog.Int("got", report.LegsExecuted),
			slog.Int("want", expected))
		os.Exit(1)
	}
	if len(sim.Fills()) != expected {
		slog.Error("fill count mismatch", slog.Int("fills", len(sim.Fills())))
		os.Exit(1)
	}

	slog.Info("smoke run ok",
		slog.String("run_id", report.RunID),
		slog.Int("sets", report.SetsDone),
		slog.Int("legs", report.LegsExecuted))
}
