// Package validator implements the Early-Fail Validator (spec §4.1): a
// fixed, cheap-to-expensive ordered battery of checks that must pass before
// any ledger row reaches "running" or any task row is created.
package validator

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/apperrors"
	"binance-trading-bot/internal/domain"
	"binance-trading-bot/internal/logging"
	"binance-trading-bot/internal/provider"
)

// Result is the outcome of Validate: Pass is true, or Fail carries the
// closed-enum reason plus a ready-made suggestion and contextual metadata.
type Result struct {
	Pass       bool
	Reason     string
	Suggestion string
	Metadata   map[string]interface{}
}

// CustomRule is a plug-in check run last, after all built-in checks pass.
type CustomRule interface {
	Name() string
	Check(ctx context.Context, symbol string) error
}

// Validator runs the 9 ordered checks of spec §4.1.
type Validator struct {
	cfg         config.ValidatorConfig
	provider    provider.DataProvider
	ledgerDB    *pgxpool.Pool
	analysisDB  *pgxpool.Pool
	resourceSrc ResourceSource
	customRules []CustomRule
}

func New(cfg config.ValidatorConfig, p provider.DataProvider, ledgerDB, analysisDB *pgxpool.Pool, rules ...CustomRule) *Validator {
	return &Validator{
		cfg:         cfg,
		provider:    p,
		ledgerDB:    ledgerDB,
		analysisDB:  analysisDB,
		resourceSrc: defaultResourceSource{},
		customRules: rules,
	}
}

// Validate runs every check in fixed order, failing fast on the first
// rejection, bounded overall by cfg.TotalBudget. An empty exchange is
// checked as the configured provider's identity.
func (v *Validator) Validate(ctx context.Context, symbol, exchange string) Result {
	log := logging.Default().WithComponent("validator").WithField("symbol", symbol)
	if exchange == "" {
		exchange = v.provider.Identity()
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.TotalBudget)
	defer cancel()

	checks := []func(context.Context, string) Result{
		v.checkSymbolExistence,
		v.checkExchangeSupported(exchange),
		v.checkDatabasesReachable,
		v.checkConnectionRoundTrip,
		v.checkTradable,
		v.checkHostResources,
		v.checkRecentDataQuality,
		v.checkHistoricalReach,
		v.checkCustomRules,
	}

	for i, check := range checks {
		res := check(ctx, symbol)
		if !res.Pass {
			log.WithField("check", i+1).WithField("reason", res.Reason).Warn("early-fail validator rejected request")
			return res
		}
	}
	log.Info("early-fail validator passed")
	return Result{Pass: true}
}

func fail(reason string, metadata map[string]interface{}) Result {
	return Result{Pass: false, Reason: reason, Suggestion: apperrors.Suggestion(reason), Metadata: metadata}
}

// 1. Symbol existence via exchange metadata.
func (v *Validator) checkSymbolExistence(ctx context.Context, symbol string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.SymbolExistenceBudget)
	defer cancel()
	_, err := v.provider.GetMarketInfo(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return fail("api_timeout", map[string]interface{}{"step": "symbol_existence"})
		}
		return fail("symbol_not_found", map[string]interface{}{"symbol": symbol})
	}
	return Result{Pass: true}
}

// 2. Exchange supported.
func (v *Validator) checkExchangeSupported(exchange string) func(context.Context, string) Result {
	return func(ctx context.Context, symbol string) Result {
		for _, allowed := range v.cfg.AllowedExchanges {
			if allowed == exchange {
				return Result{Pass: true}
			}
		}
		return fail("exchange_not_supported", map[string]interface{}{"exchange": exchange})
	}
}

// 3. Two databases reachable + required tables present.
func (v *Validator) checkDatabasesReachable(ctx context.Context, _ string) Result {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := v.ledgerDB.Ping(ctx); err != nil {
		return fail("database_connection_failed", map[string]interface{}{"database": "ledger"})
	}
	if err := v.analysisDB.Ping(ctx); err != nil {
		return fail("database_connection_failed", map[string]interface{}{"database": "analysis"})
	}
	var n int
	err := v.ledgerDB.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables WHERE table_name IN ('executions','execution_steps')`).Scan(&n)
	if err != nil || n < 2 {
		return fail("database_connection_failed", map[string]interface{}{"missing": "ledger tables"})
	}
	err = v.analysisDB.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables WHERE table_name IN ('strategy_configurations','analyses','analysis_trades_summary')`).Scan(&n)
	if err != nil || n < 3 {
		return fail("database_connection_failed", map[string]interface{}{"missing": "analysis tables"})
	}
	return Result{Pass: true}
}

// 4. Connection round-trip to the provider.
func (v *Validator) checkConnectionRoundTrip(ctx context.Context, symbol string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.ConnectionBudget)
	defer cancel()
	_, err := v.provider.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return fail("api_timeout", map[string]interface{}{"step": "connection_round_trip"})
	}
	return Result{Pass: true}
}

// 5. Instrument currently tradable.
func (v *Validator) checkTradable(ctx context.Context, symbol string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.TradabilityBudget)
	defer cancel()
	info, err := v.provider.GetMarketInfo(ctx, symbol)
	if err != nil {
		return fail("api_timeout", map[string]interface{}{"step": "tradability"})
	}
	if !info.IsActive || info.Volume24h <= 0 {
		return fail("symbol_not_tradable", map[string]interface{}{"volume_24h": info.Volume24h, "is_active": info.IsActive})
	}
	return Result{Pass: true}
}

// 6. Host resources.
func (v *Validator) checkHostResources(ctx context.Context, _ string) Result {
	usage, err := v.resourceSrc.Usage()
	if err != nil {
		// Resource telemetry unavailable is not itself a validation failure;
		// treat as pass rather than blocking onboarding on an observability gap.
		return Result{Pass: true}
	}
	if usage.CPUPercent > v.cfg.MaxCPUPercent {
		return fail("insufficient_resources", map[string]interface{}{"cpu_percent": usage.CPUPercent})
	}
	if usage.MemPercent > v.cfg.MaxMemPercent {
		return fail("insufficient_resources", map[string]interface{}{"mem_percent": usage.MemPercent})
	}
	if usage.FreeDiskGiB < v.cfg.MinFreeDiskGiB {
		return fail("insufficient_resources", map[string]interface{}{"free_disk_gib": usage.FreeDiskGiB})
	}
	return Result{Pass: true}
}

// 7. Recent-sample data quality: completeness over the last 30 days at 1h.
func (v *Validator) checkRecentDataQuality(ctx context.Context, symbol string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.DataQualityBudget)
	defer cancel()

	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)
	candles, err := v.provider.GetOHLCV(ctx, symbol, domain.Timeframe1h, start, end)
	if err != nil {
		return fail("api_timeout", map[string]interface{}{"step": "data_quality"})
	}

	expected := int(end.Sub(start).Hours())
	completeness := 0.0
	if expected > 0 {
		completeness = float64(len(candles)) / float64(expected) * 100
	}
	if completeness < v.cfg.MinCompletenessPct {
		return fail("insufficient_data_quality", map[string]interface{}{"completeness_pct": completeness})
	}
	return Result{Pass: true}
}

// 8. Historical reach: a candle must exist at now - required_days.
func (v *Validator) checkHistoricalReach(ctx context.Context, symbol string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.HistoricalReachBudget)
	defer cancel()

	target := time.Now().UTC().AddDate(0, 0, -v.cfg.RequiredHistoryDays)
	window := target.Add(24 * time.Hour)
	candles, err := v.provider.GetOHLCV(ctx, symbol, domain.Timeframe1d, target.Add(-24*time.Hour), window)
	if err != nil {
		return fail("api_timeout", map[string]interface{}{"step": "historical_reach"})
	}
	if len(candles) == 0 {
		return fail("insufficient_historical_data", map[string]interface{}{"required_days": v.cfg.RequiredHistoryDays})
	}
	return Result{Pass: true}
}

// 9. Custom rules (plug-in list), unbounded by config.
func (v *Validator) checkCustomRules(ctx context.Context, symbol string) Result {
	for _, rule := range v.customRules {
		if err := rule.Check(ctx, symbol); err != nil {
			return fail("custom_rule_violation", map[string]interface{}{"rule": rule.Name(), "error": err.Error()})
		}
	}
	return Result{Pass: true}
}
