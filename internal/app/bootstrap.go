package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/cryptokatze/backpack-volume-bot/internal/infra"
	"github.com/cryptokatze/backpack-volume-bot/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.TradeJournal

	unlock func()
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, sets up logging, and opens the journal.
func (b *Bootstrap) Initialize() error {
	// .env is optional; shell exports work the same way.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	workDir := infra.GetWorkspaceDir()

	// Data isolation: simulated and live runs never share a journal.
	mode := "simulated"
	if cfg.IsLive() {
		mode = "live"
	}
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per journal database, or SQLite WAL gets unhappy.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "journal.db")
	journal, err := storage.NewTradeJournal(dbPath)
	if err != nil {
		b.unlock()
		return fmt.Errorf("failed to open trade journal: %w", err)
	}
	b.Journal = journal

	slog.Info("Trade journal ready", slog.String("path", dbPath), slog.String("mode", mode))
	return nil
}

// Shutdown releases the journal and the instance lock.
func (b *Bootstrap) Shutdown() {
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("Journal close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
