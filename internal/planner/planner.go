// Package planner implements the Task Planner (spec §4.2 step 4): it
// expands an accepted execution's mode into a concrete task list and
// writes every row before any worker starts, so progress is observable
// upfront.
package planner

import (
	"context"
	"fmt"
	"time"

	"binance-trading-bot/internal/analysisstore"
	"binance-trading-bot/internal/domain"
)

// Planner expands executions into task rows.
type Planner struct {
	store *analysisstore.Store
}

func New(store *analysisstore.Store) *Planner {
	return &Planner{store: store}
}

// Plan resolves the strategy set for exec.Mode, writes one pending task row
// per (strategy, timeframe) pair, and returns the resolved strategies so
// the caller can hand them to the worker pool without a second lookup.
func (p *Planner) Plan(ctx context.Context, exec domain.Execution) ([]domain.Strategy, error) {
	strategies, err := p.resolveStrategies(ctx, exec)
	if err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("planner: mode %q for execution %s resolved to zero strategies", exec.Mode, exec.ExecutionID)
	}

	now := time.Now().UTC()
	tasks := make([]domain.Task, 0, len(strategies))
	for _, st := range strategies {
		tasks = append(tasks, domain.Task{
			ExecutionID: exec.ExecutionID,
			StrategyID:  st.ID,
			Timeframe:   st.Timeframe,
			Status:      domain.TaskPending,
			CreatedAt:   now,
		})
	}

	if err := p.store.CreateTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	return strategies, nil
}

func (p *Planner) resolveStrategies(ctx context.Context, exec domain.Execution) ([]domain.Strategy, error) {
	switch exec.Mode {
	case domain.ModeDefault:
		// Cross product of all active default strategies × all default
		// timeframes is already materialized as rows in
		// strategy_configurations (one row per base_kind/timeframe pair
		// flagged is_default), so a single catalog read covers it.
		return p.store.ListDefaultStrategies(ctx)
	case domain.ModeSelective:
		if len(exec.SelectedStrategyIDs) == 0 {
			return nil, fmt.Errorf("planner: selective mode requires selected_strategy_ids")
		}
		return p.store.GetStrategiesByIDs(ctx, exec.SelectedStrategyIDs)
	case domain.ModeCustom:
		if len(exec.SelectedStrategyIDs) == 0 {
			return nil, fmt.Errorf("planner: custom mode requires selected_strategy_ids")
		}
		return p.store.GetStrategiesByIDs(ctx, exec.SelectedStrategyIDs)
	default:
		return nil, fmt.Errorf("planner: unknown mode %q", exec.Mode)
	}
}
