package analysisstore

// Migrations is the ordered DDL for the analysis database (spec §6): the
// strategy catalog, one row per task in analyses, and derived per-task
// trade metrics in analysis_trades_summary.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS strategy_configurations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		base_kind TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		parameters JSONB NOT NULL DEFAULT '{}',
		leverage_cap DOUBLE PRECISION NOT NULL,
		stop_take_profile TEXT NOT NULL,
		filter_overrides JSONB,
		is_default BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (name, base_kind, timeframe)
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id BIGSERIAL PRIMARY KEY,
		execution_id TEXT NOT NULL,
		strategy_id BIGINT NOT NULL REFERENCES strategy_configurations(id),
		timeframe TEXT NOT NULL,
		task_status TEXT NOT NULL DEFAULT 'pending',
		evaluations_run INT NOT NULL DEFAULT 0,
		total_trades INT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		error_message TEXT,
		retry_count INT NOT NULL DEFAULT 0,
		reject_histogram JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (execution_id, strategy_id, timeframe)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_execution ON analyses (execution_id)`,
	`CREATE TABLE IF NOT EXISTS analysis_trades_summary (
		analysis_id BIGINT PRIMARY KEY REFERENCES analyses(id),
		win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		sharpe_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_drawdown_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_leverage DOUBLE PRECISION NOT NULL DEFAULT 0,
		signal_count INT NOT NULL DEFAULT 0,
		no_signal_count INT NOT NULL DEFAULT 0,
		early_exit_count INT NOT NULL DEFAULT 0,
		trades_blob BYTEA,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
