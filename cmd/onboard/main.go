// Command onboard is the onboarding pipeline's entrypoint: it loads
// configuration, wires the ledger, analysis store, validator, planner,
// worker pool, and recorder together, and serves the Submission API until
// told to shut down.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/analysisstore"
	"binance-trading-bot/internal/api"
	"binance-trading-bot/internal/ledger"
	"binance-trading-bot/internal/logging"
	"binance-trading-bot/internal/pgdb"
	"binance-trading-bot/internal/planner"
	"binance-trading-bot/internal/provider"
	"binance-trading-bot/internal/recorder"
	"binance-trading-bot/internal/validator"
	"binance-trading-bot/internal/vault"
	"binance-trading-bot/internal/workerpool"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code per spec §6: 0 success, 1 validator
// fail (unused here — the CLI runs the API server, not a single symbol's
// validation), 2 cancelled, 3 internal error.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		return 3
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "onboard",
	})
	logging.SetDefault(logger)
	logger.Info("onboarding pipeline starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerPool, err := pgdb.NewPool(ctx, cfg.LedgerDBConfig)
	if err != nil {
		logger.WithError(err).Error("failed to connect to ledger database")
		return 3
	}
	defer ledgerPool.Close()
	if err := pgdb.RunMigrations(ctx, ledgerPool, ledger.Migrations); err != nil {
		logger.WithError(err).Error("failed to run ledger migrations")
		return 3
	}

	analysisPool, err := pgdb.NewPool(ctx, cfg.AnalysisDBConfig)
	if err != nil {
		logger.WithError(err).Error("failed to connect to analysis database")
		return 3
	}
	defer analysisPool.Close()
	if err := pgdb.RunMigrations(ctx, analysisPool, analysisstore.Migrations); err != nil {
		logger.WithError(err).Error("failed to run analysis store migrations")
		return 3
	}

	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.WithError(err).Error("failed to construct vault client")
		return 3
	}
	creds, err := vaultClient.GetProviderCredentials(ctx, cfg.ProviderConfig.Identity)
	apiKey := ""
	if err == nil {
		apiKey = creds.APIKey
	}

	dataProvider, err := provider.New(cfg.ProviderConfig.Identity, cfg.ProviderConfig.BaseURL, apiKey)
	if err != nil {
		logger.WithError(err).Error("failed to construct data provider")
		return 3
	}

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisConfig.Address,
			Password:     cfg.RedisConfig.Password,
			DB:           cfg.RedisConfig.DB,
			PoolSize:     cfg.RedisConfig.PoolSize,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
	}

	ledgerStore := ledger.New(ledgerPool)
	analysisStore := analysisstore.New(analysisPool)
	v := validator.New(cfg.ValidatorConfig, dataProvider, ledgerPool, analysisPool)
	p := planner.New(analysisStore)
	rec := recorder.New(analysisStore, cfg.ProgressConfig.SnapshotDir, redisClient, cfg.ProgressConfig.RedisTTL)
	pool := workerpool.New(ledgerStore, analysisStore, dataProvider, rec, cfg.CentralDefaults, cfg.WorkerConfig.MaxWorkers)

	productionMode := cfg.LoggingConfig.Level != "debug"
	server := api.NewServer(cfg.ServerConfig, cfg.AuthConfig, ledgerStore, analysisStore, v, p, pool, rec, productionMode)

	logger.WithField("port", cfg.ServerConfig.Port).Info("serving submission API")
	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("api server exited with an error")
		return 3
	}

	if ctx.Err() != nil {
		logger.Info("shutdown signal received")
		return 2
	}
	return 0
}
