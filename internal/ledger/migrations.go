package ledger

// Migrations is the ordered DDL for the execution ledger database:
// executions and execution_steps, one-to-many, per spec §6's persisted
// state layout. Grounded on internal/database/db.go's ordered-statement
// RunMigrations shape.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS executions (
		execution_id VARCHAR(64) PRIMARY KEY,
		symbol VARCHAR(12) NOT NULL,
		mode VARCHAR(16) NOT NULL,
		provider VARCHAR(16) NOT NULL,
		selected_strategy_ids JSONB,
		filter_params JSONB,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		progress_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_operation VARCHAR(255) NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_symbol ON executions(symbol)`,
	`CREATE TABLE IF NOT EXISTS execution_steps (
		id BIGSERIAL PRIMARY KEY,
		execution_id VARCHAR(64) NOT NULL REFERENCES executions(execution_id) ON DELETE CASCADE,
		reason VARCHAR(64) NOT NULL,
		suggestion TEXT,
		stage VARCHAR(64),
		metadata JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_steps_execution_id ON execution_steps(execution_id)`,
}
