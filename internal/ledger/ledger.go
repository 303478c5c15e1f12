// Package ledger implements the Execution Ledger (spec §4.2): a durable,
// row-level-serialized record of every onboarding request and its
// per-step status, keyed by a globally unique execution_id.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/logging"
)

// Ledger is the durable store keyed by execution_id. All writes are
// serialized by Postgres row locking on the primary key; there is no
// additional application-level lock.
type Ledger struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// NewExecutionID builds the execution_id format required by spec §3:
// symbol_addition_<utc-timestamp>_<8-hex>.
func NewExecutionID(symbol string, now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_addition_%d_%s", strings.ToLower(symbol), now.UTC().Unix(), hex)
}

// CreateExecution inserts a new ledger row. Callers pass the already
// decided status: "failed" when the early-fail validator rejected the
// request (with err populated via AppendError separately), "pending"
// otherwise, per the acceptance flow in spec §4.2.
func (l *Ledger) CreateExecution(ctx context.Context, exec domain.Execution) error {
	selectedIDs, err := json.Marshal(exec.SelectedStrategyIDs)
	if err != nil {
		return fmt.Errorf("marshal selected_strategy_ids: %w", err)
	}
	var filterParams []byte
	if exec.FilterParams != nil {
		filterParams, err = json.Marshal(exec.FilterParams)
		if err != nil {
			return fmt.Errorf("marshal filter_params: %w", err)
		}
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO executions
			(execution_id, symbol, mode, provider, selected_strategy_ids, filter_params, status, progress_percent, current_operation, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		exec.ExecutionID, exec.Symbol, string(exec.Mode), exec.Provider,
		selectedIDs, nullableJSON(filterParams), string(exec.Status),
		exec.ProgressPercent, exec.CurrentOperation, exec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	logging.ExecutionContext(exec.ExecutionID, exec.Symbol, string(exec.Mode)).Info("execution created")
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// UpdateStatus updates status and, when non-empty, progress_percent and
// current_operation. Progress must never be written with a lower value than
// what's stored (testable property 5: monotonically non-decreasing).
func (l *Ledger) UpdateStatus(ctx context.Context, executionID string, status domain.ExecutionStatus, progressPercent *float64, currentOperation string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var completedAt interface{}
	if status == domain.ExecutionSuccess || status == domain.ExecutionFailed || status == domain.ExecutionCancelled {
		completedAt = time.Now().UTC()
	}

	if progressPercent != nil {
		var current float64
		if err := tx.QueryRow(ctx, `SELECT progress_percent FROM executions WHERE execution_id = $1 FOR UPDATE`, executionID).Scan(&current); err != nil {
			return fmt.Errorf("select for update: %w", err)
		}
		if *progressPercent < current {
			return fmt.Errorf("refusing to decrease progress from %.2f to %.2f for execution %s", current, *progressPercent, executionID)
		}
		_, err = tx.Exec(ctx, `
			UPDATE executions SET status=$1, progress_percent=$2, current_operation=$3, completed_at=COALESCE($4, completed_at)
			WHERE execution_id=$5`,
			string(status), *progressPercent, currentOperation, completedAt, executionID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE executions SET status=$1, current_operation=COALESCE(NULLIF($2, ''), current_operation), completed_at=COALESCE($3, completed_at)
			WHERE execution_id=$4`,
			string(status), currentOperation, completedAt, executionID)
	}
	if err != nil {
		return fmt.Errorf("update execution status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AppendError appends one structured error to an execution's ordered error
// list (the execution_steps table).
func (l *Ledger) AppendError(ctx context.Context, executionID string, e domain.StructuredError) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO execution_steps (execution_id, reason, suggestion, stage, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		executionID, e.Reason, e.Suggestion, e.Stage, metadata, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution_step: %w", err)
	}
	return nil
}

// GetExecution reads one execution row, used by the progress endpoint and
// by workers polling the cancellation flag.
func (l *Ledger) GetExecution(ctx context.Context, executionID string) (domain.Execution, error) {
	var (
		exec           domain.Execution
		selectedIDsRaw []byte
		filterRaw      []byte
		completedAt    *time.Time
	)
	row := l.pool.QueryRow(ctx, `
		SELECT execution_id, symbol, mode, provider, selected_strategy_ids, filter_params, status,
		       progress_percent, current_operation, started_at, completed_at
		FROM executions WHERE execution_id = $1`, executionID)
	var mode, status string
	if err := row.Scan(&exec.ExecutionID, &exec.Symbol, &mode, &exec.Provider, &selectedIDsRaw, &filterRaw,
		&status, &exec.ProgressPercent, &exec.CurrentOperation, &exec.StartedAt, &completedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Execution{}, fmt.Errorf("execution %s not found", executionID)
		}
		return domain.Execution{}, fmt.Errorf("select execution: %w", err)
	}
	exec.Mode = domain.Mode(mode)
	exec.Status = domain.ExecutionStatus(status)
	exec.CompletedAt = completedAt
	_ = json.Unmarshal(selectedIDsRaw, &exec.SelectedStrategyIDs)
	if len(filterRaw) > 0 {
		exec.FilterParams = &domain.FilterParamOverrides{}
		_ = json.Unmarshal(filterRaw, exec.FilterParams)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT reason, suggestion, stage, metadata, occurred_at FROM execution_steps
		WHERE execution_id = $1 ORDER BY occurred_at ASC`, executionID)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("select execution_steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var se domain.StructuredError
		var metadataRaw []byte
		if err := rows.Scan(&se.Reason, &se.Suggestion, &se.Stage, &metadataRaw, &se.OccurredAt); err != nil {
			return domain.Execution{}, fmt.Errorf("scan execution_step: %w", err)
		}
		_ = json.Unmarshal(metadataRaw, &se.Metadata)
		exec.Errors = append(exec.Errors, se)
	}
	return exec, nil
}

// IsCancelled polls the authoritative cancellation flag. This is the sole
// cancellation checkpoint primitive workers use, per spec §9's guidance to
// model cancellation as a single polled ledger boolean rather than a
// message bus.
func (l *Ledger) IsCancelled(ctx context.Context, executionID string) (bool, error) {
	var status string
	err := l.pool.QueryRow(ctx, `SELECT status FROM executions WHERE execution_id = $1`, executionID).Scan(&status)
	if err != nil {
		return false, fmt.Errorf("check cancellation flag: %w", err)
	}
	return status == string(domain.ExecutionCancelled), nil
}

// ListRecent lists the most recently started executions, optionally
// filtered by status.
func (l *Ledger) ListRecent(ctx context.Context, statusFilter string, limit int) ([]domain.Execution, error) {
	var rows pgx.Rows
	var err error
	if statusFilter != "" {
		rows, err = l.pool.Query(ctx, `
			SELECT execution_id, symbol, mode, provider, status, progress_percent, current_operation, started_at, completed_at
			FROM executions WHERE status = $1 ORDER BY started_at DESC LIMIT $2`, statusFilter, limit)
	} else {
		rows, err = l.pool.Query(ctx, `
			SELECT execution_id, symbol, mode, provider, status, progress_percent, current_operation, started_at, completed_at
			FROM executions ORDER BY started_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list recent executions: %w", err)
	}
	defer rows.Close()

	var out []domain.Execution
	for rows.Next() {
		var e domain.Execution
		var mode, status string
		var completedAt *time.Time
		if err := rows.Scan(&e.ExecutionID, &e.Symbol, &mode, &e.Provider, &status, &e.ProgressPercent, &e.CurrentOperation, &e.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Mode = domain.Mode(mode)
		e.Status = domain.ExecutionStatus(status)
		e.CompletedAt = completedAt
		out = append(out, e)
	}
	return out, nil
}

// RequestCancel flips an execution's status to cancelled. This is the only
// write path that sets that status directly; workers only ever read it.
func (l *Ledger) RequestCancel(ctx context.Context, executionID string) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE executions SET status = $1
		WHERE execution_id = $2 AND status IN ('pending', 'running')`,
		string(domain.ExecutionCancelled), executionID)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("execution %s is not cancellable from its current status", executionID)
	}
	return nil
}
