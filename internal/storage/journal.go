package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"

	_ "github.com/glebarez/go-sqlite"
)

// LegRecord is one executed (or rejected) order leg as written to the journal.
type LegRecord struct {
	RunID    string
	Set      int
	Leg      int
	Symbol   string
	Side     domain.Side
	Quantity decimal.Decimal
	OrderID  string
	Accepted bool
	Error    string
	TsUnixMs int64
}

// TradeJournal persists every leg and liquidation order in SQLite so a run
// can be audited after the terminal session is gone. Best-effort from the
// caller's perspective: a journal failure never aborts a trading cycle.
type TradeJournal struct {
	db *sql.DB
}

// NewTradeJournal opens (or creates) the journal with WAL mode enabled.
func NewTradeJournal(dbPath string) (*TradeJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS legs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			set_num INTEGER NOT NULL,
			leg_num INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			accepted INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create legs table: %w", err)
	}

	// KV table for session settings that should survive restarts.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &TradeJournal{db: db}, nil
}

// RecordLeg appends one leg outcome to the journal.
func (j *TradeJournal) RecordLeg(ctx context.Context, rec LegRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO legs (run_id, set_num, leg_num, symbol, side, quantity, order_id, accepted, error, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Set, rec.Leg, rec.Symbol, string(rec.Side), rec.Quantity.String(),
		rec.OrderID, boolToInt(rec.Accepted), rec.Error, rec.TsUnixMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert leg: %w", err)
	}
	return nil
}

// LegsForRun loads all legs of one run in execution order.
func (j *TradeJournal) LegsForRun(ctx context.Context, runID string) ([]LegRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, set_num, leg_num, symbol, side, quantity, order_id, accepted, error, ts
		 FROM legs WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query legs: %w", err)
	}
	defer rows.Close()

	var legs []LegRecord
	for rows.Next() {
		var rec LegRecord
		var side, qty string
		var accepted int
		if err := rows.Scan(&rec.RunID, &rec.Set, &rec.Leg, &rec.Symbol, &side, &qty,
			&rec.OrderID, &accepted, &rec.Error, &rec.TsUnixMs); err != nil {
			return nil, fmt.Errorf("failed to scan leg: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.Accepted = accepted != 0
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("corrupt quantity %q in journal: %w", qty, err)
		}
		rec.Quantity = d
		legs = append(legs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return legs, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *TradeJournal) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. Missing keys return
// an empty string, not an error.
func (j *TradeJournal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (j *TradeJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
