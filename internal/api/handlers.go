package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"binance-trading-bot/internal/apperrors"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/ledger"
	"binance-trading-bot/internal/workerpool"
)

// submitRequest mirrors spec §6's request body exactly.
type submitRequest struct {
	Symbol              string                       `json:"symbol" binding:"required"`
	Mode                string                       `json:"mode" binding:"required"`
	SelectedStrategyIDs []int64                      `json:"selected_strategy_ids,omitempty"`
	FilterParams        *domain.FilterParamOverrides `json:"filter_params,omitempty"`
	Period              *periodOverride              `json:"period,omitempty"`
}

type periodOverride struct {
	Mode      string     `json:"mode"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// handleSubmitExecution runs the early-fail validator. On fail it records a
// "failed" ledger row carrying the validator's reason and returns that
// reason; on pass it creates the ledger row, plans the task list, and kicks
// off the worker pool in the background. The handler itself only blocks for
// validation.
func (s *Server) handleSubmitExecution(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	mode := domain.Mode(req.Mode)
	switch mode {
	case domain.ModeDefault, domain.ModeSelective, domain.ModeCustom:
	default:
		errorResponse(c, http.StatusBadRequest, "mode must be one of default, selective, custom")
		return
	}
	if mode != domain.ModeDefault && len(req.SelectedStrategyIDs) == 0 {
		errorResponse(c, http.StatusBadRequest, "selected_strategy_ids is required for mode "+req.Mode)
		return
	}

	ctx := c.Request.Context()
	result := s.validator.Validate(ctx, req.Symbol, "")
	now := time.Now().UTC()
	executionID := ledger.NewExecutionID(req.Symbol, now)

	if !result.Pass {
		failedExec := domain.Execution{
			ExecutionID:         executionID,
			Symbol:              req.Symbol,
			Mode:                mode,
			SelectedStrategyIDs: req.SelectedStrategyIDs,
			Status:              domain.ExecutionFailed,
			FilterParams:        req.FilterParams,
			StartedAt:           now,
		}
		if err := s.ledger.CreateExecution(ctx, failedExec); err == nil {
			_ = s.ledger.AppendError(ctx, executionID, domain.StructuredError{
				Reason: result.Reason, Suggestion: result.Suggestion, Metadata: result.Metadata, OccurredAt: now,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"error":      true,
			"reason":     result.Reason,
			"suggestion": result.Suggestion,
		})
		return
	}

	exec := domain.Execution{
		ExecutionID:         executionID,
		Symbol:              req.Symbol,
		Mode:                mode,
		SelectedStrategyIDs: req.SelectedStrategyIDs,
		Status:              domain.ExecutionPending,
		FilterParams:        req.FilterParams,
		StartedAt:           now,
	}
	if err := s.ledger.CreateExecution(ctx, exec); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	strategies, err := s.planner.Plan(ctx, exec)
	if err != nil {
		_ = s.ledger.UpdateStatus(ctx, executionID, domain.ExecutionFailed, nil, "planning failed")
		_ = s.ledger.AppendError(ctx, executionID, domain.StructuredError{
			Reason: "planning_failed", Suggestion: apperrors.Suggestion("planning_failed"), OccurredAt: time.Now().UTC(),
		})
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	windows := resolveWindows(req.Period)
	evalNow := now
	if req.Period != nil && req.Period.Mode == "custom" && req.Period.EndDate != nil {
		evalNow = *req.Period.EndDate
	}

	go s.runExecution(exec, strategies, windows, evalNow)

	c.JSON(http.StatusOK, gin.H{"execution_id": executionID, "status": "pending"})
}

// runExecution drives an accepted execution to completion in the
// background. The HTTP handler has already returned to the caller.
func (s *Server) runExecution(exec domain.Execution, strategies []domain.Strategy, windows map[domain.Timeframe]workerpool.TimeframeWindow, now time.Time) {
	ctx := context.Background()
	running := 0.0
	_ = s.ledger.UpdateStatus(ctx, exec.ExecutionID, domain.ExecutionRunning, &running, "running worker pool")

	if err := s.pool.Run(ctx, exec, strategies, windows, now); err != nil {
		_ = s.ledger.UpdateStatus(ctx, exec.ExecutionID, domain.ExecutionFailed, nil, "worker pool error")
		_ = s.ledger.AppendError(ctx, exec.ExecutionID, domain.StructuredError{
			Reason: "worker_pool_error", Suggestion: "retry the execution", OccurredAt: time.Now().UTC(),
		})
		return
	}

	finalStatus, err := s.finalStatus(ctx, exec.ExecutionID)
	if err != nil {
		_ = s.ledger.UpdateStatus(ctx, exec.ExecutionID, domain.ExecutionFailed, nil, "finalize failed")
		return
	}
	complete := 100.0
	_ = s.ledger.UpdateStatus(ctx, exec.ExecutionID, finalStatus, &complete, "complete")
}

// finalStatus classifies an execution's terminal status from its task
// outcomes, per spec §3's status-derivation invariant.
func (s *Server) finalStatus(ctx context.Context, executionID string) (domain.ExecutionStatus, error) {
	tasks, err := s.store.ListTasks(ctx, executionID)
	if err != nil {
		return "", err
	}
	if cancelled, _ := s.ledger.IsCancelled(ctx, executionID); cancelled {
		return domain.ExecutionCancelled, nil
	}

	completed := 0
	failed := 0
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskCompleted:
			completed++
		case domain.TaskFailed:
			failed++
		}
	}
	if failed > 0 {
		return domain.ExecutionFailed, nil
	}
	if completed > 0 {
		return domain.ExecutionSuccess, nil
	}
	return domain.ExecutionFailed, nil
}

// resolveWindows applies a custom evaluation period to every timeframe's
// default window, or returns the defaults untouched.
func resolveWindows(period *periodOverride) map[domain.Timeframe]workerpool.TimeframeWindow {
	defaults := workerpool.DefaultTimeframeWindows()
	if period == nil || period.Mode != "custom" || period.StartDate == nil || period.EndDate == nil {
		return defaults
	}
	days := int(period.EndDate.Sub(*period.StartDate).Hours() / 24)
	if days < 1 {
		return defaults
	}
	out := make(map[domain.Timeframe]workerpool.TimeframeWindow, len(defaults))
	for tf, w := range defaults {
		w.WindowDays = days
		out[tf] = w
	}
	return out
}

// handleGetExecution reports an execution's progress and its per-task
// status, per spec §6's progress endpoint.
func (s *Server) handleGetExecution(c *gin.Context) {
	executionID := c.Param("id")
	ctx := c.Request.Context()

	exec, err := s.ledger.GetExecution(ctx, executionID)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "execution not found")
		return
	}

	tasks, err := s.store.ListTasks(ctx, executionID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	strategyNames := map[int64]string{}
	if len(tasks) > 0 {
		ids := make([]int64, 0, len(tasks))
		seen := map[int64]bool{}
		for _, t := range tasks {
			if !seen[t.StrategyID] {
				seen[t.StrategyID] = true
				ids = append(ids, t.StrategyID)
			}
		}
		if strategies, err := s.store.GetStrategiesByIDs(ctx, ids); err == nil {
			for _, st := range strategies {
				strategyNames[st.ID] = st.Name
			}
		}
	}

	taskViews := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		taskViews = append(taskViews, gin.H{
			"strategy":      strategyNames[t.StrategyID],
			"strategy_id":   t.StrategyID,
			"timeframe":     t.Timeframe,
			"status":        t.Status,
			"error_message": t.ErrorMessage,
			"retry_count":   t.RetryCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            exec.Status,
		"progress_percent":  exec.ProgressPercent,
		"current_operation": exec.CurrentOperation,
		"tasks":             taskViews,
	})
}

// handleCancelExecution flips the ledger's cancellation flag. Workers
// observe it cooperatively at their documented checkpoints.
func (s *Server) handleCancelExecution(c *gin.Context) {
	executionID := c.Param("id")
	if err := s.ledger.RequestCancel(c.Request.Context(), executionID); err != nil {
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}
