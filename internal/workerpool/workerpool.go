// Package workerpool is the Worker Pool of spec §4.2: bounded parallel
// execution of planned tasks, each task owned end-to-end by one goroutine,
// polling the ledger's cooperative cancellation flag at the documented
// checkpoints (before task start, between timepoints, between decision
// steps).
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/analysisstore"
	"binance-trading-bot/internal/decisionpath"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/filterengine"
	"binance-trading-bot/internal/ledger"
	"binance-trading-bot/internal/provider"
)

// Recorder persists the outcomes a task produces. internal/recorder is the
// production implementation; tests may supply a stub.
type Recorder interface {
	Record(ctx context.Context, task domain.Task, outcomes []domain.Outcome, rejectHistogram map[int]int) error
}

// Pool runs tasks with bounded concurrency, one goroutine per task.
type Pool struct {
	ledger     *ledger.Ledger
	store      *analysisstore.Store
	provider   provider.DataProvider
	recorder   Recorder
	defaults   config.CentralDefaults
	maxWorkers int
}

func New(l *ledger.Ledger, store *analysisstore.Store, p provider.DataProvider, r Recorder, defaults config.CentralDefaults, maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{ledger: l, store: store, provider: p, recorder: r, defaults: defaults, maxWorkers: maxWorkers}
}

// TimeframeWindow bundles the per-timeframe evaluation-grid and gate
// parameters spec §4.3/§4.4 say come from "the timeframe config" —
// window_days/step plus gate-2's volume/spread/liquidity floor and gate-6's
// volatility bounds, both timeframe-dependent (a 1m spread floor is not a
// 1d spread floor). SwingLookback sizes the support/resistance detector
// every gate after gate-2 shares.
type TimeframeWindow struct {
	WindowDays     int
	TargetCoverage float64
	SwingLookback  int
	MinVolume      float64
	MaxSpreadPct   float64
	MinLiquidity   float64
	VolatilityMin  float64
	VolatilityMax  float64
}

// DefaultTimeframeWindows gives every timeframe a sane set of defaults when
// no per-timeframe override is configured in config.CentralDefaults, per
// spec §4.3's example (90 days for 1h) and §9's single-source-of-truth
// requirement — these are the file's defaults, not literals re-embedded in
// the worker.
func DefaultTimeframeWindows() map[domain.Timeframe]TimeframeWindow {
	return map[domain.Timeframe]TimeframeWindow{
		domain.Timeframe1m:  {WindowDays: 3, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe3m:  {WindowDays: 7, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe5m:  {WindowDays: 14, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe15m: {WindowDays: 30, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe30m: {WindowDays: 60, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe1h:  {WindowDays: 90, TargetCoverage: 0.80, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe4h:  {WindowDays: 180, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
		domain.Timeframe1d:  {WindowDays: 365, TargetCoverage: 0, SwingLookback: 5, MinVolume: 0, MaxSpreadPct: 0.15, MinLiquidity: 0, VolatilityMin: 0.002, VolatilityMax: 0.25},
	}
}

// Run executes every planned task for exec with bounded parallelism. The
// execution's own status transitions are the caller's responsibility (the
// CLI entrypoint owns start/finish bookkeeping); Run only drives tasks.
func (p *Pool) Run(ctx context.Context, exec domain.Execution, strategies []domain.Strategy, windows map[domain.Timeframe]TimeframeWindow, now time.Time) error {
	tasks, err := p.store.ListTasks(ctx, exec.ExecutionID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	strategyByID := make(map[int64]domain.Strategy, len(strategies))
	for _, s := range strategies {
		strategyByID[s.ID] = s
	}

	taskChan := make(chan domain.Task, len(tasks))
	for _, t := range tasks {
		taskChan <- t
	}
	close(taskChan)

	var wg sync.WaitGroup
	for i := 0; i < p.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				strat, ok := strategyByID[task.StrategyID]
				if !ok {
					continue
				}
				p.runTask(ctx, exec, task, strat, windows[task.Timeframe], now)
			}
		}()
	}
	wg.Wait()
	return nil
}

// runTask owns one task end-to-end: fetch data, build the evaluation grid,
// walk it in ascending timestamp order, and hand every outcome to the
// recorder. A task never shares its data slice or channel with another
// task, matching spec §5's single-writer-per-task rule.
func (p *Pool) runTask(ctx context.Context, exec domain.Execution, task domain.Task, strat domain.Strategy, window TimeframeWindow, now time.Time) {
	if p.isCancelled(ctx, exec.ExecutionID) {
		p.markSkipped(ctx, task)
		return
	}
	_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskRunning, "")

	step := filterengine.TimeframeStep(task.Timeframe)
	lookback := now.AddDate(0, 0, -window.WindowDays*2)

	candles, err := p.provider.GetOHLCV(ctx, exec.Symbol, task.Timeframe, lookback, now)
	if err != nil || len(candles) == 0 {
		_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskFailed, "market_data_unavailable")
		return
	}
	btcCandles, _ := p.provider.GetOHLCV(ctx, "BTC", task.Timeframe, lookback, now)

	data := filterengine.NewPreparedData(exec.Symbol, candles, btcCandles)
	thresholds, err := filterengine.Resolve(p.defaults, filterengine.FromOverrides(exec.FilterParams), strat.FilterOverrides, domain.FilterThresholds{})
	if err != nil {
		_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskFailed, err.Error())
		return
	}

	targetCoverage := window.TargetCoverage
	if targetCoverage <= 0 {
		targetCoverage = p.defaults.TargetCoverage
	}
	grid := filterengine.BuildGrid(now, window.WindowDays, step, targetCoverage, p.defaults.EvaluationCap, candles[0].OpenTime)

	histogram := make(map[int]int)
	var outcomes []domain.Outcome
	cancelledMidTask := false

	for _, t := range grid.Timepoints {
		if p.isCancelled(ctx, exec.ExecutionID) {
			cancelledMidTask = true
			break
		}

		refPrice, ok := filterengine.ReferencePriceAt(data, t)
		if !ok {
			continue
		}
		ec := &filterengine.EvalContext{
			Data:           data,
			T:              t,
			ReferencePrice: refPrice,
			Strategy:       strat,
			Thresholds:     thresholds,
			SwingLookback:  window.SwingLookback,
			MinVolume:      window.MinVolume,
			MaxSpreadPct:   window.MaxSpreadPct,
			MinLiquidity:   window.MinLiquidity,
			VolatilityMin:  window.VolatilityMin,
			VolatilityMax:  window.VolatilityMax,
		}

		gateOutcome := filterengine.RunChain(ec)
		if !gateOutcome.GatePassed {
			histogram[gateOutcome.RejectGate]++
			outcomes = append(outcomes, domain.Outcome{
				Kind: domain.OutcomeEarlyExit,
				EarlyExit: &domain.EarlyExit{
					EvaluationTime:   t,
					Stage:            fmt.Sprintf("filter_%d", gateOutcome.RejectGate),
					ClassifiedReason: gateOutcome.RejectInfo.Reason,
				},
			})
			continue
		}

		result := decisionpath.Run(ec, p.defaults, decisionpath.Elapsed(), func() bool { return p.isCancelled(ctx, exec.ExecutionID) })
		if result.Cancelled {
			cancelledMidTask = true
			break
		}
		if result.Completed && result.Recommendation != nil {
			outcomes = append(outcomes, domain.Outcome{Kind: domain.OutcomeSignal, Signal: result.Recommendation})
			continue
		}
		if result.NoSignal {
			outcomes = append(outcomes, domain.Outcome{
				Kind:     domain.OutcomeNoSignal,
				NoSignal: &domain.NoSignal{EvaluationTime: t, Reason: result.NoSignalReason},
			})
			continue
		}
		outcomes = append(outcomes, domain.Outcome{
			Kind: domain.OutcomeEarlyExit,
			EarlyExit: &domain.EarlyExit{
				EvaluationTime:   t,
				Stage:            result.ExitStage,
				ClassifiedReason: result.ExitReason,
			},
		})
	}

	if cancelledMidTask {
		if err := p.recorder.Record(ctx, task, outcomes, histogram); err != nil {
			_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskFailed, err.Error())
			return
		}
		p.markSkipped(ctx, task)
		return
	}

	if err := p.recorder.Record(ctx, task, outcomes, histogram); err != nil {
		_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskFailed, err.Error())
		return
	}
	_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskCompleted, "")
}

func (p *Pool) markSkipped(ctx context.Context, task domain.Task) {
	_ = p.store.UpdateTaskStatus(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, domain.TaskSkipped, "cancelled")
}

func (p *Pool) isCancelled(ctx context.Context, executionID string) bool {
	cancelled, err := p.ledger.IsCancelled(ctx, executionID)
	if err != nil {
		return false
	}
	return cancelled
}
