// Package analysisstore is the analysis-database repository (spec §6): the
// strategy catalog, one row per planned task, and derived per-task trade
// metrics, kept in a Postgres database separate from the ledger.
package analysisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"binance-trading-bot/internal/domain"
)

// Store is the analysis-database repository.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListDefaultStrategies returns every strategy flagged is_default, for
// default-mode planning (cross product of default strategies × default
// timeframes).
func (s *Store) ListDefaultStrategies(ctx context.Context) ([]domain.Strategy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, base_kind, timeframe, parameters, leverage_cap, stop_take_profile, filter_overrides
		FROM strategy_configurations WHERE is_default = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list default strategies: %w", err)
	}
	defer rows.Close()
	return scanStrategies(rows)
}

// GetStrategiesByIDs returns the strategies named by ids, in no particular
// order, used by selective and custom modes.
func (s *Store) GetStrategiesByIDs(ctx context.Context, ids []int64) ([]domain.Strategy, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, base_kind, timeframe, parameters, leverage_cap, stop_take_profile, filter_overrides
		FROM strategy_configurations WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get strategies by ids: %w", err)
	}
	defer rows.Close()
	return scanStrategies(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanStrategies(rows pgxRows) ([]domain.Strategy, error) {
	var out []domain.Strategy
	for rows.Next() {
		var st domain.Strategy
		var baseKind, timeframe string
		var paramsRaw, overridesRaw []byte
		if err := rows.Scan(&st.ID, &st.Name, &baseKind, &timeframe, &paramsRaw, &st.LeverageCap, &st.StopTakeProfile, &overridesRaw); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		st.BaseKind = domain.BaseKind(baseKind)
		st.Timeframe = domain.Timeframe(timeframe)
		if len(paramsRaw) > 0 {
			_ = json.Unmarshal(paramsRaw, &st.Parameters)
		}
		if len(overridesRaw) > 0 {
			_ = json.Unmarshal(overridesRaw, &st.FilterOverrides)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTasks inserts one analyses row per task, all within a single
// transaction so the task list becomes visible to progress readers
// atomically (spec §4.2's "creates one pending task per pair ... before any
// work starts").
func (s *Store) CreateTasks(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range tasks {
		_, err := tx.Exec(ctx, `
			INSERT INTO analyses (execution_id, strategy_id, timeframe, task_status, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			t.ExecutionID, t.StrategyID, string(t.Timeframe), string(t.Status), t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert analysis task %s: %w", t.Key(), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tasks: %w", err)
	}
	return nil
}

// ListTasks returns every task row for an execution, ordered by creation,
// used by the worker pool to pull its work list and by the progress
// endpoint to report per-task status.
func (s *Store) ListTasks(ctx context.Context, executionID string) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT execution_id, strategy_id, timeframe, task_status, started_at, completed_at, COALESCE(error_message, ''), retry_count, created_at
		FROM analyses WHERE execution_id = $1 ORDER BY id ASC`, executionID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var status, timeframe string
		if err := rows.Scan(&t.ExecutionID, &t.StrategyID, &timeframe, &status, &t.StartedAt, &t.CompletedAt, &t.ErrorMessage, &t.RetryCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Timeframe = domain.Timeframe(timeframe)
		t.Status = domain.TaskStatus(status)
		out = append(out, t)
	}
	return out, nil
}

// UpdateTaskStatus transitions one task and, on entering running, stamps
// started_at; on entering a terminal state, stamps completed_at.
func (s *Store) UpdateTaskStatus(ctx context.Context, executionID string, strategyID int64, timeframe domain.Timeframe, status domain.TaskStatus, errMsg string) error {
	now := time.Now().UTC()
	var startedAt, completedAt interface{}
	switch status {
	case domain.TaskRunning:
		startedAt = now
	case domain.TaskCompleted, domain.TaskFailed, domain.TaskSkipped:
		completedAt = now
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE analyses SET task_status=$1, error_message=NULLIF($2,''),
			started_at=COALESCE($3, started_at), completed_at=COALESCE($4, completed_at)
		WHERE execution_id=$5 AND strategy_id=$6 AND timeframe=$7`,
		string(status), errMsg, startedAt, completedAt, executionID, strategyID, string(timeframe))
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// RecordEvaluationCounts updates the running evaluation/trade counters and
// reject histogram for one task, called as the filtering engine progresses.
func (s *Store) RecordEvaluationCounts(ctx context.Context, executionID string, strategyID int64, timeframe domain.Timeframe, evaluationsRun, totalTrades int, rejectHistogram map[string]int) error {
	histRaw, err := json.Marshal(rejectHistogram)
	if err != nil {
		return fmt.Errorf("marshal reject histogram: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE analyses SET evaluations_run=$1, total_trades=$2, reject_histogram=$3
		WHERE execution_id=$4 AND strategy_id=$5 AND timeframe=$6`,
		evaluationsRun, totalTrades, histRaw, executionID, strategyID, string(timeframe))
	if err != nil {
		return fmt.Errorf("record evaluation counts: %w", err)
	}
	return nil
}

// TradeSummary is the aggregate-metrics row saved once a task finishes.
type TradeSummary struct {
	AnalysisID         int64
	WinRate            float64
	SharpeRatio        float64
	MaxDrawdownPercent float64
	AverageLeverage    float64
	SignalCount        int
	NoSignalCount      int
	EarlyExitCount     int
	TradesBlob         []byte
}

// SaveTradeSummary upserts the derived metrics for one completed task.
func (s *Store) SaveTradeSummary(ctx context.Context, executionID string, strategyID int64, timeframe domain.Timeframe, sum TradeSummary) error {
	var analysisID int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM analyses WHERE execution_id=$1 AND strategy_id=$2 AND timeframe=$3`,
		executionID, strategyID, string(timeframe)).Scan(&analysisID)
	if err != nil {
		return fmt.Errorf("lookup analysis id: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_trades_summary
			(analysis_id, win_rate, sharpe_ratio, max_drawdown_percent, average_leverage, signal_count, no_signal_count, early_exit_count, trades_blob, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (analysis_id) DO UPDATE SET
			win_rate=EXCLUDED.win_rate, sharpe_ratio=EXCLUDED.sharpe_ratio,
			max_drawdown_percent=EXCLUDED.max_drawdown_percent, average_leverage=EXCLUDED.average_leverage,
			signal_count=EXCLUDED.signal_count, no_signal_count=EXCLUDED.no_signal_count,
			early_exit_count=EXCLUDED.early_exit_count, trades_blob=EXCLUDED.trades_blob, updated_at=EXCLUDED.updated_at`,
		analysisID, sum.WinRate, sum.SharpeRatio, sum.MaxDrawdownPercent, sum.AverageLeverage,
		sum.SignalCount, sum.NoSignalCount, sum.EarlyExitCount, sum.TradesBlob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save trade summary: %w", err)
	}
	return nil
}
