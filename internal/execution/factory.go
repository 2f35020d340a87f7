package execution

import (
	"fmt"
	"log/slog"

	"github.com/cryptokatze/backpack-volume-bot/internal/infra"
	"github.com/cryptokatze/backpack-volume-bot/internal/infra/backpack"
)

// NewExchange returns the live client when both credentials are present,
// otherwise the simulated venue. Credential presence is the sole mode
// switch; there is no separate flag to get it wrong.
func NewExchange(cfg *infra.Config) (Exchange, error) {
	if !cfg.IsLive() {
		slog.Info("No API credentials found, starting in SIMULATED mode")
		return NewSimulatedExchange(), nil
	}

	slog.Info("API credentials found, starting in LIVE mode",
		slog.String("base_url", cfg.Exchange.BaseURL),
		slog.Int("window_ms", cfg.Exchange.WindowMS))

	client, err := backpack.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create live client: %w", err)
	}
	return client, nil
}
