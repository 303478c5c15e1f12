// Package recorder is the Result Recorder of spec §4.6: it persists the
// three outcome kinds a task produces, computes aggregate metrics once a
// task finishes, compresses the per-trade blob, and mirrors progress to a
// filesystem snapshot and an optional Redis cache for advisory polling.
package recorder

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"binance-trading-bot/internal/analysisstore"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/logging"
)

// Snapshot is the advisory progress file written under the shared
// snapshot directory, keyed by execution_id and task key (spec §4.6).
type Snapshot struct {
	ExecutionID     string         `json:"execution_id"`
	StrategyID      int64          `json:"strategy_id"`
	Timeframe       string         `json:"timeframe"`
	EvaluationsRun  int            `json:"evaluations_run"`
	TotalTrades     int            `json:"total_trades"`
	RejectHistogram map[int]int    `json:"reject_histogram"`
	UpdatedAt       time.Time      `json:"updated_at"`
	NoSignalCount   int            `json:"no_signal_count"`
	EarlyExitCount  int            `json:"early_exit_count"`
}

// Recorder implements workerpool.Recorder.
type Recorder struct {
	store      *analysisstore.Store
	snapshotDir string
	redis      *redis.Client
	redisTTL   time.Duration
	redisOK    atomic.Bool
	cacheMu    sync.RWMutex
	cache      map[string][]byte
	log        *logging.Logger
}

const redisKeyPrefix = "onboard:progress"

// New builds a Recorder. redisClient may be nil, in which case progress
// mirroring falls back to the in-memory cache only, matching the teacher's
// Redis-with-in-memory-fallback idiom.
func New(store *analysisstore.Store, snapshotDir string, redisClient *redis.Client, redisTTL time.Duration) *Recorder {
	r := &Recorder{store: store, snapshotDir: snapshotDir, redis: redisClient, redisTTL: redisTTL, cache: make(map[string][]byte), log: logging.WithComponent("recorder")}
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			r.log.WithError(err).Warn("redis unavailable at startup, using in-memory snapshot cache")
			r.redisOK.Store(false)
		} else {
			r.redisOK.Store(true)
		}
	}
	return r
}

// Record persists a task's batch of outcomes: it classifies them into
// signal/no-signal/early-exit counts, writes the reject histogram and
// evaluation counts, computes aggregate metrics, and upserts the trade
// summary. This is called both when a task completes normally and when it
// is cut short by cancellation (the partial batch is still recorded).
func (r *Recorder) Record(ctx context.Context, task domain.Task, outcomes []domain.Outcome, rejectHistogram map[int]int) error {
	var signals []domain.Signal
	var noSignalCount, earlyExitCount int

	for _, o := range outcomes {
		switch o.Kind {
		case domain.OutcomeSignal:
			if o.Signal != nil {
				signals = append(signals, *o.Signal)
			}
		case domain.OutcomeNoSignal:
			noSignalCount++
		case domain.OutcomeEarlyExit:
			earlyExitCount++
		}
	}

	histStrKeys := make(map[string]int, len(rejectHistogram))
	for k, v := range rejectHistogram {
		histStrKeys[fmt.Sprintf("filter_%d", k)] = v
	}

	if err := r.store.RecordEvaluationCounts(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, len(outcomes), len(signals), histStrKeys); err != nil {
		return fmt.Errorf("record evaluation counts: %w", err)
	}

	blob, err := compressTrades(signals)
	if err != nil {
		return fmt.Errorf("compress trade blob: %w", err)
	}

	summary := analysisstore.TradeSummary{
		WinRate:            winRate(signals),
		SharpeRatio:        sharpeRatio(signals),
		MaxDrawdownPercent: maxDrawdown(signals),
		AverageLeverage:    averageLeverage(signals),
		SignalCount:        len(signals),
		NoSignalCount:      noSignalCount,
		EarlyExitCount:     earlyExitCount,
		TradesBlob:         blob,
	}
	if err := r.store.SaveTradeSummary(ctx, task.ExecutionID, task.StrategyID, task.Timeframe, summary); err != nil {
		return fmt.Errorf("save trade summary: %w", err)
	}

	r.writeSnapshot(ctx, task, Snapshot{
		ExecutionID:     task.ExecutionID,
		StrategyID:      task.StrategyID,
		Timeframe:       string(task.Timeframe),
		EvaluationsRun:  len(outcomes),
		TotalTrades:     len(signals),
		RejectHistogram: rejectHistogram,
		UpdatedAt:       time.Now().UTC(),
		NoSignalCount:   noSignalCount,
		EarlyExitCount:  earlyExitCount,
	})

	return nil
}

func compressTrades(signals []domain.Signal) ([]byte, error) {
	raw, err := json.Marshal(signals)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func winRate(signals []domain.Signal) float64 {
	if len(signals) == 0 {
		return 0
	}
	wins := 0
	for _, s := range signals {
		if s.RiskReward > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(signals)) * 100
}

func averageLeverage(signals []domain.Signal) float64 {
	if len(signals) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range signals {
		total += s.Leverage
	}
	return total / float64(len(signals))
}

// maxDrawdown treats each signal's risk/reward-implied loss as a synthetic
// equity step, in the same peak-tracking shape the teacher's backtest
// engine uses for its real equity curve.
func maxDrawdown(signals []domain.Signal) float64 {
	if len(signals) == 0 {
		return 0
	}
	equity := 100.0
	peak := equity
	maxDD := 0.0
	for _, s := range signals {
		pct := s.RiskReward - 1
		equity *= 1 + pct*0.01
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio mirrors the teacher's simplified risk-adjusted-return
// calculation, down to its hand-rolled Newton's-method square root.
func sharpeRatio(signals []domain.Signal) float64 {
	if len(signals) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range signals {
		total += s.RiskReward
	}
	avg := total / float64(len(signals))

	variance := 0.0
	for _, s := range signals {
		diff := s.RiskReward - avg
		variance += diff * diff
	}
	stdDev := newtonSqrt(variance / float64(len(signals)))
	if stdDev == 0 {
		return 0
	}
	return avg / stdDev
}

func newtonSqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	guess := x / 2
	for i := 0; i < 10; i++ {
		guess = (guess + x/guess) / 2
	}
	return guess
}

// writeSnapshot writes the advisory progress file and mirrors it to Redis
// (or the in-memory cache if Redis is unavailable). Failures here are
// logged, never propagated — the ledger remains authoritative for status.
func (r *Recorder) writeSnapshot(ctx context.Context, task domain.Task, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		r.log.WithError(err).Error("marshal snapshot")
		return
	}

	if r.snapshotDir != "" {
		dir := filepath.Join(r.snapshotDir, task.ExecutionID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.log.WithError(err).Warn("mkdir snapshot dir")
		} else {
			name := fmt.Sprintf("%d_%s.json", task.StrategyID, task.Timeframe)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				r.log.WithError(err).Warn("write snapshot file")
			}
		}
	}

	key := fmt.Sprintf("%s:%s:%d:%s", redisKeyPrefix, task.ExecutionID, task.StrategyID, task.Timeframe)
	r.cacheMu.Lock()
	r.cache[key] = data
	r.cacheMu.Unlock()

	if r.redis != nil && r.redisOK.Load() {
		if err := r.redis.Set(ctx, key, data, r.redisTTL).Err(); err != nil {
			r.log.WithError(err).Warn("redis mirror write failed, falling back to in-memory cache")
			r.redisOK.Store(false)
		}
	}
}

// LoadSnapshot returns the last mirrored snapshot for a task, trying Redis
// before the in-memory fallback.
func (r *Recorder) LoadSnapshot(ctx context.Context, executionID string, strategyID int64, timeframe domain.Timeframe) (Snapshot, bool) {
	key := fmt.Sprintf("%s:%s:%d:%s", redisKeyPrefix, executionID, strategyID, timeframe)

	if r.redis != nil && r.redisOK.Load() {
		data, err := r.redis.Get(ctx, key).Result()
		if err == nil {
			var snap Snapshot
			if json.Unmarshal([]byte(data), &snap) == nil {
				return snap, true
			}
		}
	}

	r.cacheMu.RLock()
	data, ok := r.cache[key]
	r.cacheMu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	var snap Snapshot
	if json.Unmarshal(data, &snap) != nil {
		return Snapshot{}, false
	}
	return snap, true
}
