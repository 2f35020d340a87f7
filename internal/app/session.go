package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/cryptokatze/backpack-volume-bot/internal/engine"
	"github.com/cryptokatze/backpack-volume-bot/internal/execution"
	"github.com/cryptokatze/backpack-volume-bot/internal/infra"
	"github.com/cryptokatze/backpack-volume-bot/internal/storage"
)

// settingsKey is the journal metadata key holding the persisted run settings.
const settingsKey = "run_config"

// persistedSettings is the JSON shape of the saved settings.
type persistedSettings struct {
	Symbol     string `json:"symbol"`
	Quantity   string `json:"quantity"`
	LegsPerSet int    `json:"legs_per_set"`
	SetCount   int    `json:"set_count"`
	WaitMinMS  int    `json:"wait_min_ms"`
	WaitMaxMS  int    `json:"wait_max_ms"`
}

// Session is the interactive terminal loop. One long-lived goroutine reads
// stdin lines; the loop consumes them as menu choices before a run and as
// control keys while a run is live.
type Session struct {
	cfg        *infra.Config
	exchange   execution.Exchange
	controller *engine.CycleController
	journal    *storage.TradeJournal

	runCfg domain.RunConfig
	lines  <-chan string
	tty    bool
}

// NewSession builds the terminal session around an exchange and journal.
// Input defaults to stdin through readLines; tests inject their own reader.
func NewSession(cfg *infra.Config, exchange execution.Exchange, journal *storage.TradeJournal, input io.Reader) (*Session, error) {
	runCfg, err := cfg.RunConfig()
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		exchange: exchange,
		journal:  journal,
		runCfg:   runCfg,
		lines:    readLines(input),
		tty:      infra.StdoutIsTerminal(),
	}
	// A typed nil pointer must not reach the interface check downstream.
	var legJournal engine.LegJournal
	if journal != nil {
		legJournal = journal
	}
	s.controller = engine.NewCycleController(exchange, legJournal, s.onProgress)
	s.restoreSettings()
	return s, nil
}

// readLines feeds trimmed stdin lines to a channel. The channel closes on
// EOF so the session can exit cleanly on a closed pipe.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return lines
}

// restoreSettings loads the last saved run settings from the journal.
// A missing or corrupt entry keeps the config-file values.
func (s *Session) restoreSettings() {
	if s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := s.journal.GetMetadata(ctx, settingsKey)
	if err != nil || raw == "" {
		return
	}

	var saved persistedSettings
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		slog.Warn("Ignoring corrupt saved settings", slog.Any("error", err))
		return
	}
	qty, err := decimal.NewFromString(saved.Quantity)
	if err != nil {
		return
	}

	restored := domain.RunConfig{
		Symbol:     saved.Symbol,
		Quantity:   qty,
		LegsPerSet: saved.LegsPerSet,
		SetCount:   saved.SetCount,
		WaitMin:    time.Duration(saved.WaitMinMS) * time.Millisecond,
		WaitMax:    time.Duration(saved.WaitMaxMS) * time.Millisecond,
	}
	if restored.Validate() == nil {
		s.runCfg = restored
	}
}

func (s *Session) saveSettings() {
	if s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	saved := persistedSettings{
		Symbol:     s.runCfg.Symbol,
		Quantity:   s.runCfg.Quantity.String(),
		LegsPerSet: s.runCfg.LegsPerSet,
		SetCount:   s.runCfg.SetCount,
		WaitMinMS:  int(s.runCfg.WaitMin / time.Millisecond),
		WaitMaxMS:  int(s.runCfg.WaitMax / time.Millisecond),
	}
	data, _ := json.Marshal(saved)
	if err := s.journal.UpsertMetadata(ctx, settingsKey, string(data), time.Now().UnixMilli()); err != nil {
		slog.Warn("Failed to persist settings", slog.Any("error", err))
	}
}

// Loop runs the menu until quit, EOF, or context cancel.
func (s *Session) Loop(ctx context.Context) {
	for {
		s.printMenu()

		select {
		case <-ctx.Done():
			return
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			switch strings.ToLower(line) {
			case "1":
				s.runCycle(ctx)
			case "2":
				s.printStatus(ctx)
			case "3":
				s.liquidateNow(ctx)
			case "4":
				s.editSettings(ctx)
			case "q", "quit", "exit":
				return
			case "":
				// Plain enter redraws the menu.
			default:
				fmt.Printf("Unknown choice: %q\n", line)
			}
		}
	}
}

func (s *Session) printMenu() {
	if s.tty {
		fmt.Print(infra.ClearScreen)
	}

	sets := strconv.Itoa(s.runCfg.SetCount)
	if s.runCfg.Unbounded() {
		sets = "unbounded"
	}

	fmt.Println()
	fmt.Printf("  Symbol: %s | Qty: %s | Legs/set: %d | Sets: %s | Wait: %s-%s\n",
		s.runCfg.Symbol, s.runCfg.Quantity, s.runCfg.LegsPerSet, sets,
		s.runCfg.WaitMin, s.runCfg.WaitMax)
	fmt.Println()
	fmt.Println("  [1] Start volume cycle")
	fmt.Println("  [2] Account status")
	fmt.Println("  [3] Liquidate all positions")
	fmt.Println("  [4] Change settings")
	fmt.Println("  [q] Quit")
	fmt.Print("> ")
}

func (s *Session) onProgress(p engine.Progress) {
	total := "∞"
	if p.TotalSets > 0 {
		total = strconv.Itoa(p.TotalSets)
	}
	fmt.Printf("  [%s] set %d/%s | executed %d | failed %d\n",
		p.State, p.Set, total, p.LegsExecuted, p.LegsFailed)
}

type runResult struct {
	report engine.Report
	err    error
}

// runCycle starts the controller and relays single-key lines to it until the
// run finishes: p pause, r resume, q stop, c liquidate.
func (s *Session) runCycle(ctx context.Context) {
	fmt.Println("Starting cycle. Controls: [p]ause  [r]esume  [q] stop  [c] liquidate+stop")

	done := make(chan runResult, 1)
	go func() {
		report, err := s.controller.Run(ctx, s.runCfg)
		done <- runResult{report: report, err: err}
	}()

	lines := s.lines
	for {
		select {
		case res := <-done:
			s.printRunSummary(res)
			return
		case <-ctx.Done():
			s.controller.Stop()
			s.printRunSummary(<-done)
			return
		case line, ok := <-lines:
			if !ok {
				// EOF: no operator left, but the requested run still finishes.
				lines = nil
				continue
			}
			switch strings.ToLower(line) {
			case "p":
				s.controller.Pause()
			case "r":
				s.controller.Resume()
			case "q":
				s.controller.Stop()
			case "c":
				s.controller.Liquidate()
			}
		}
	}
}

func (s *Session) printRunSummary(res runResult) {
	if res.err != nil {
		fmt.Printf("Run failed: %v\n", res.err)
		return
	}
	r := res.report
	fmt.Printf("Run %s finished: %d sets, %d legs executed, %d failed",
		r.RunID, r.SetsDone, r.LegsExecuted, r.LegsFailed)
	if r.Liquidated {
		fmt.Print(" (liquidated)")
	}
	fmt.Println()
	s.waitForEnter()
}

// statusRefresh is how often the status view re-queries and redraws.
const statusRefresh = time.Second

// printStatus shows balances, positions, and resting orders, redrawn every
// second until the operator presses enter.
func (s *Session) printStatus(ctx context.Context) {
	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()

	for {
		if s.tty {
			fmt.Print(infra.ClearScreen)
		}
		s.renderStatus(ctx)
		fmt.Println("\n  Press enter to return to the menu.")

		select {
		case <-ctx.Done():
			return
		case <-s.lines:
			// Any line (or EOF) leaves the view.
			return
		case <-ticker.C:
		}
	}
}

// renderStatus queries and prints one snapshot.
func (s *Session) renderStatus(ctx context.Context) {
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mode := "SIMULATED"
	if s.exchange.Live() {
		mode = "LIVE"
	}
	fmt.Printf("\n  Mode: %s | State: %s\n\n", mode, s.controller.State())

	balances, err := s.exchange.Balances(qctx)
	if err != nil {
		fmt.Printf("  Balances unavailable: %v\n", err)
	} else {
		fmt.Println("  Balances:")
		for asset, b := range balances {
			if !b.HasFunds() {
				continue
			}
			fmt.Printf("    %-6s available=%s locked=%s\n", asset, b.Available, b.Locked)
		}
	}

	positions, err := s.exchange.Positions(qctx, s.runCfg.Symbol)
	if err != nil {
		fmt.Printf("  Positions unavailable: %v\n", err)
	} else if len(positions) == 0 {
		fmt.Println("  Positions: flat")
	} else {
		fmt.Println("  Positions:")
		for i := range positions {
			p := &positions[i]
			fmt.Printf("    %s net=%s entry=%s pnl=%s\n",
				p.Symbol, p.NetQuantity, p.EntryPrice, p.UnrealizedPnl)
		}
	}

	orders, err := s.exchange.OpenOrders(qctx, s.runCfg.Symbol)
	if err != nil {
		fmt.Printf("  Open orders unavailable: %v\n", err)
	} else if len(orders) == 0 {
		fmt.Println("  Open orders: none")
	} else {
		fmt.Println("  Open orders:")
		for _, o := range orders {
			fmt.Printf("    %s %s %s qty=%s status=%s\n",
				o.ID, o.Symbol, o.Side, o.Quantity, o.Status)
		}
	}
}

// liquidateNow flattens outside of a run, for positions left behind by a
// plain stop or a crash.
func (s *Session) liquidateNow(ctx context.Context) {
	fmt.Printf("Liquidating all %s positions...\n", s.runCfg.Symbol)

	qctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reconciler := engine.NewPositionReconciler(s.exchange)
	if err := reconciler.Flatten(qctx, s.runCfg.Symbol); err != nil {
		fmt.Printf("Liquidation incomplete: %v\n", err)
	} else {
		fmt.Println("Done, account flat.")
	}
	s.waitForEnter()
}

// editSettings prompts for each field. Empty input keeps the current value;
// invalid input is reported and keeps the current value. The whole new
// config must validate or the previous one stays in force.
func (s *Session) editSettings(ctx context.Context) {
	next := s.runCfg

	if v := s.prompt(ctx, "Symbol", next.Symbol); v != "" {
		next.Symbol = strings.ToUpper(v)
	}
	if v := s.prompt(ctx, "Quantity", next.Quantity.String()); v != "" {
		if qty, err := decimal.NewFromString(v); err == nil {
			next.Quantity = qty
		} else {
			fmt.Printf("  Not a number: %q, keeping %s\n", v, next.Quantity)
		}
	}
	if v := s.prompt(ctx, "Legs per set", strconv.Itoa(next.LegsPerSet)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			next.LegsPerSet = n
		} else {
			fmt.Printf("  Not a number: %q, keeping %d\n", v, next.LegsPerSet)
		}
	}
	if v := s.prompt(ctx, "Sets (0 = until stopped)", strconv.Itoa(next.SetCount)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			next.SetCount = n
		} else {
			fmt.Printf("  Not a number: %q, keeping %d\n", v, next.SetCount)
		}
	}
	if v := s.prompt(ctx, "Min wait ms", strconv.Itoa(int(next.WaitMin/time.Millisecond))); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			next.WaitMin = time.Duration(n) * time.Millisecond
		} else {
			fmt.Printf("  Not a number: %q\n", v)
		}
	}
	if v := s.prompt(ctx, "Max wait ms", strconv.Itoa(int(next.WaitMax/time.Millisecond))); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			next.WaitMax = time.Duration(n) * time.Millisecond
		} else {
			fmt.Printf("  Not a number: %q\n", v)
		}
	}

	if err := next.Validate(); err != nil {
		fmt.Printf("Settings unchanged: %v\n", err)
		return
	}

	s.runCfg = next
	s.saveSettings()
	fmt.Println("Settings saved.")
}

func (s *Session) prompt(ctx context.Context, label, current string) string {
	fmt.Printf("  %s [%s]: ", label, current)
	select {
	case <-ctx.Done():
		return ""
	case line, ok := <-s.lines:
		if !ok {
			return ""
		}
		return line
	}
}

func (s *Session) waitForEnter() {
	if !s.tty {
		return
	}
	fmt.Print("\nPress enter to continue...")
	select {
	case <-s.lines:
	case <-time.After(5 * time.Minute):
	}
}
