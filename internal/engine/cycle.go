package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/cryptokatze/backpack-volume-bot/internal/execution"
	"github.com/cryptokatze/backpack-volume-bot/internal/storage"
)

// Signal is an operator command delivered to a running cycle.
type Signal int

const (
	SignalPause Signal = iota
	SignalResume
	SignalStop
	SignalLiquidate
)

func (s Signal) String() string {
	switch s {
	case SignalPause:
		return "PAUSE"
	case SignalResume:
		return "RESUME"
	case SignalStop:
		return "STOP"
	case SignalLiquidate:
		return "LIQUIDATE"
	default:
		return "UNKNOWN"
	}
}

// Progress is a read-only snapshot pushed to the UI after every state or
// leg transition.
type Progress struct {
	State        domain.CycleState
	Set          int
	TotalSets    int // 0 = unbounded
	LegsExecuted int
	LegsFailed   int
}

// Report summarizes one finished run.
type Report struct {
	RunID        string
	SetsDone     int
	LegsExecuted int
	LegsFailed   int
	Liquidated   bool
}

// LegJournal is what the controller needs from the trade journal. Nil is
// fine; journaling is optional and never blocks trading.
type LegJournal interface {
	RecordLeg(ctx context.Context, rec storage.LegRecord) error
}

// checkInterval is the polling slice an interruptible wait is chopped into.
// Signals are picked up within one slice even mid-wait.
const checkInterval = 100 * time.Millisecond

// ErrAlreadyRunning is returned by Run when a cycle is already in progress.
var ErrAlreadyRunning = errors.New("a cycle is already running")

// CycleController owns the run lifecycle. All state transitions happen on
// the Run goroutine; the mutex exists only so the UI can read state and
// progress while a run is live.
type CycleController struct {
	exchange   execution.Exchange
	reconciler *PositionReconciler
	journal    LegJournal
	rng        *rand.Rand

	// Boundary: used to notify the terminal session of progress
	onProgress func(Progress)

	signals chan Signal

	mu       sync.RWMutex
	state    domain.CycleState
	progress Progress
}

// NewCycleController wires a controller to an exchange. journal and
// onProgress may be nil.
func NewCycleController(exchange execution.Exchange, journal LegJournal, onProgress func(Progress)) *CycleController {
	return &CycleController{
		exchange:   exchange,
		reconciler: NewPositionReconciler(exchange),
		journal:    journal,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		onProgress: onProgress,
		signals:    make(chan Signal, 8),
		state:      domain.StateIdle,
	}
}

// Pause requests that no new leg starts until Resume.
func (c *CycleController) Pause() { c.send(SignalPause) }

// Resume lifts a pause. The interrupted wait is not continued; a fresh
// randomized wait starts so resume timing leaks nothing about the schedule.
func (c *CycleController) Resume() { c.send(SignalResume) }

// Stop finishes the in-flight leg, skips the rest, and leaves positions as
// they are.
func (c *CycleController) Stop() { c.send(SignalStop) }

// Liquidate stops like Stop but flattens all positions before reporting
// Stopped.
func (c *CycleController) Liquidate() { c.send(SignalLiquidate) }

// send never blocks. A full buffer means enough identical intent is already
// queued; dropping the extra signal is the idempotent behavior we want.
func (c *CycleController) send(s Signal) {
	select {
	case c.signals <- s:
	default:
	}
}

// State returns the current lifecycle state for display.
func (c *CycleController) State() domain.CycleState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Progress returns the latest progress snapshot for display.
func (c *CycleController) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.progress
}

func (c *CycleController) setState(s domain.CycleState) {
	c.mu.Lock()
	c.state = s
	c.progress.State = s
	snapshot := c.progress
	c.mu.Unlock()

	if c.onProgress != nil {
		c.onProgress(snapshot)
	}
}

func (c *CycleController) updateProgress(fn func(*Progress)) {
	c.mu.Lock()
	fn(&c.progress)
	c.progress.State = c.state
	snapshot := c.progress
	c.mu.Unlock()

	if c.onProgress != nil {
		c.onProgress(snapshot)
	}
}

// Run executes the configured sets of buy/sell leg pairs until completion or
// an operator signal. It is synchronous; callers start it on its own
// goroutine and drive it through the signal methods.
func (c *CycleController) Run(ctx context.Context, cfg domain.RunConfig) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return Report{}, ErrAlreadyRunning
	}
	c.state = domain.StateRunning
	c.progress = Progress{State: domain.StateRunning, TotalSets: cfg.SetCount}
	c.mu.Unlock()

	// Drain signals queued before the run existed.
	for len(c.signals) > 0 {
		<-c.signals
	}

	report := Report{RunID: uuid.NewString()}
	defer c.setState(domain.StateStopped)

	slog.Info("Cycle started",
		slog.String("run_id", report.RunID),
		slog.String("symbol", cfg.Symbol),
		slog.String("quantity", cfg.Quantity.String()),
		slog.Int("legs_per_set", cfg.LegsPerSet),
		slog.Int("set_count", cfg.SetCount),
		slog.Bool("live", c.exchange.Live()))

	for set := 1; cfg.Unbounded() || set <= cfg.SetCount; set++ {
		c.updateProgress(func(p *Progress) { p.Set = set })

		for leg := 1; leg <= cfg.LegsPerSet; leg++ {
			// Strict alternation: each pair opens with a buy and flattens
			// itself with the matching sell before the next pair starts.
			for _, side := range []domain.Side{domain.SideBid, domain.SideAsk} {
				if ctx.Err() != nil {
					return report, nil
				}

				// The leg fires first; the randomized wait follows it, so the
				// run's opening order is never delayed.
				c.executeLeg(ctx, cfg, report.RunID, set, leg, side, &report)

				if side == domain.SideAsk && leg == cfg.LegsPerSet {
					report.SetsDone = set
				}
				if !cfg.Unbounded() && set == cfg.SetCount &&
					leg == cfg.LegsPerSet && side == domain.SideAsk {
					// Nothing follows the final leg, skip its wait.
					continue
				}

				switch c.waitBetweenLegs(ctx, cfg) {
				case outcomeStop:
					slog.Info("Cycle stopped by operator", slog.String("run_id", report.RunID))
					return report, nil
				case outcomeLiquidate:
					report.Liquidated = true
					c.liquidate(ctx, cfg.Symbol, report.RunID)
					return report, nil
				}
			}
		}
	}

	slog.Info("Cycle completed",
		slog.String("run_id", report.RunID),
		slog.Int("sets", report.SetsDone),
		slog.Int("legs_executed", report.LegsExecuted),
		slog.Int("legs_failed", report.LegsFailed))
	return report, nil
}

type waitOutcome int

const (
	outcomeProceed waitOutcome = iota
	outcomeStop
	outcomeLiquidate
)

// waitBetweenLegs sleeps a random duration in [WaitMin, WaitMax], waking
// every checkInterval to honor signals. Pausing discards the remaining wait;
// resuming starts a fresh one.
func (c *CycleController) waitBetweenLegs(ctx context.Context, cfg domain.RunConfig) waitOutcome {
restart:
	for {
		remaining := c.randomWait(cfg)
		slog.Debug("Waiting before next leg", slog.Duration("wait", remaining))

		for {
			// Signals outrank the timer, zero-length waits included.
			select {
			case <-ctx.Done():
				return outcomeStop
			case sig := <-c.signals:
				out, fresh := c.handleWaitSignal(ctx, sig)
				if out != outcomeProceed {
					return out
				}
				if fresh {
					continue restart
				}
				continue
			default:
			}

			if remaining <= 0 {
				return outcomeProceed
			}

			slice := checkInterval
			if remaining < slice {
				slice = remaining
			}

			select {
			case <-ctx.Done():
				return outcomeStop
			case sig := <-c.signals:
				out, fresh := c.handleWaitSignal(ctx, sig)
				if out != outcomeProceed {
					return out
				}
				if fresh {
					continue restart
				}
			case <-time.After(slice):
				remaining -= slice
			}
		}
	}
}

func (c *CycleController) handleWaitSignal(ctx context.Context, sig Signal) (out waitOutcome, freshWait bool) {
	switch sig {
	case SignalStop:
		c.setState(domain.StateStopping)
		return outcomeStop, false
	case SignalLiquidate:
		return outcomeLiquidate, false
	case SignalPause:
		if out := c.waitWhilePaused(ctx); out != outcomeProceed {
			return out, false
		}
		return outcomeProceed, true
	}
	// A resume without a pause is a no-op.
	return outcomeProceed, false
}

// waitWhilePaused blocks until resume, stop, or liquidate. No legs and no
// timers run while paused.
func (c *CycleController) waitWhilePaused(ctx context.Context) waitOutcome {
	c.setState(domain.StatePaused)
	slog.Info("Cycle paused")

	for {
		select {
		case <-ctx.Done():
			return outcomeStop
		case sig := <-c.signals:
			switch sig {
			case SignalResume:
				c.setState(domain.StateRunning)
				slog.Info("Cycle resumed")
				return outcomeProceed
			case SignalStop:
				c.setState(domain.StateStopping)
				return outcomeStop
			case SignalLiquidate:
				return outcomeLiquidate
			}
			// A repeated pause while paused changes nothing.
		}
	}
}

func (c *CycleController) randomWait(cfg domain.RunConfig) time.Duration {
	span := cfg.WaitMax - cfg.WaitMin
	if span <= 0 {
		return cfg.WaitMin
	}
	return cfg.WaitMin + time.Duration(c.rng.Int63n(int64(span)+1))
}

// executeLeg places one market order. Failures are logged and counted, never
// fatal; the venue is the source of truth and a later liquidate cleans up.
func (c *CycleController) executeLeg(ctx context.Context, cfg domain.RunConfig, runID string, set, leg int, side domain.Side, report *Report) {
	result, err := c.exchange.PlaceOrder(ctx, cfg.Symbol, side, cfg.Quantity)

	rec := storage.LegRecord{
		RunID:    runID,
		Set:      set,
		Leg:      leg,
		Symbol:   cfg.Symbol,
		Side:     side,
		Quantity: cfg.Quantity,
		OrderID:  result.OrderID,
		Accepted: err == nil && result.Accepted,
		TsUnixMs: time.Now().UnixMilli(),
	}

	if err != nil {
		rec.Error = err.Error()
		report.LegsFailed++
		slog.Warn("Leg failed",
			slog.Int("set", set),
			slog.Int("leg", leg),
			slog.String("side", string(side)),
			slog.Any("error", err))
	} else if !result.Accepted {
		rec.Error = string(result.Kind)
		report.LegsFailed++
		slog.Warn("Leg rejected",
			slog.Int("set", set),
			slog.Int("leg", leg),
			slog.String("side", string(side)),
			slog.String("kind", string(result.Kind)))
	} else {
		report.LegsExecuted++
		slog.Info("Leg executed",
			slog.Int("set", set),
			slog.Int("leg", leg),
			slog.String("side", string(side)),
			slog.String("order_id", result.OrderID))
	}

	c.updateProgress(func(p *Progress) {
		p.LegsExecuted = report.LegsExecuted
		p.LegsFailed = report.LegsFailed
	})

	if c.journal != nil {
		if jerr := c.journal.RecordLeg(ctx, rec); jerr != nil {
			slog.Warn("Journal write failed", slog.Any("error", jerr))
		}
	}
}

// liquidate runs the reconciler exactly once per run, regardless of how many
// liquidate signals were queued.
func (c *CycleController) liquidate(ctx context.Context, symbol, runID string) {
	c.setState(domain.StateLiquidating)
	slog.Info("Liquidating", slog.String("run_id", runID), slog.String("symbol", symbol))

	// The operator asked to flatten; a canceled ctx must not abort that.
	flattenCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		flattenCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	if err := c.reconciler.Flatten(flattenCtx, symbol); err != nil {
		slog.Warn("Liquidation incomplete, manual check advised", slog.Any("error", err))
	}
}
