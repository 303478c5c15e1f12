// Package config loads this service's configuration from a JSON file and
// applies environment-variable overrides on top, exactly as the onboarding
// pipeline's central-defaults rule requires: the file (or its built-in
// zero values) is the base and environment wins. The sentinel value
// "use_default" in a threshold field means "resolve me from
// CentralDefaults"; that happens when thresholds are resolved, not at load
// time, and ResolveThreshold expects the caller to have turned the sentinel
// into an absent candidate already.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// UseDefault is the sentinel a strategy or timeframe config may set on a
// threshold field to defer to CentralDefaults.
const UseDefault = "use_default"

type Config struct {
	LoggingConfig   LoggingConfig   `json:"logging"`
	ServerConfig    ServerConfig    `json:"server"`
	AuthConfig      AuthConfig      `json:"auth"`
	VaultConfig     VaultConfig     `json:"vault"`
	RedisConfig     RedisConfig     `json:"redis"`
	LedgerDBConfig  DatabaseConfig  `json:"ledger_db"`
	AnalysisDBConfig DatabaseConfig `json:"analysis_db"`
	ProviderConfig  ProviderConfig  `json:"provider"`
	WorkerConfig    WorkerConfig    `json:"worker"`
	ValidatorConfig ValidatorConfig `json:"validator"`
	CentralDefaults CentralDefaults `json:"central_defaults"`
	ProgressConfig  ProgressConfig  `json:"progress"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DatabaseConfig configures one of the two Postgres-backed stores (ledger or
// analysis) per spec §5's two-databases shared-resource policy.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// ProviderConfig selects the data-provider identity. Switching is always an
// explicit user action — this value is never silently reinterpreted.
type ProviderConfig struct {
	Identity   string `json:"identity"` // "hyperliquid" | "gateio"
	BaseURL    string `json:"base_url"`
	APIKeyPath string `json:"api_key_path"` // vault path
}

type WorkerConfig struct {
	MaxWorkers        int           `json:"max_workers"`
	CancelGraceWindow time.Duration `json:"cancel_grace_window"`
}

type ValidatorConfig struct {
	TotalBudget           time.Duration `json:"total_budget"`
	SymbolExistenceBudget time.Duration `json:"symbol_existence_budget"`
	ConnectionBudget      time.Duration `json:"connection_budget"`
	TradabilityBudget     time.Duration `json:"tradability_budget"`
	DataQualityBudget     time.Duration `json:"data_quality_budget"`
	HistoricalReachBudget time.Duration `json:"historical_reach_budget"`
	RequiredHistoryDays   int           `json:"required_history_days"`
	MinCompletenessPct    float64       `json:"min_completeness_pct"`
	MaxCPUPercent         float64       `json:"max_cpu_percent"`
	MaxMemPercent         float64       `json:"max_mem_percent"`
	MinFreeDiskGiB        float64       `json:"min_free_disk_gib"`
	AllowedExchanges      []string      `json:"allowed_exchanges"`
}

// CentralDefaults is the single source of truth every threshold resolves
// against once user override, strategy config, and timeframe config have
// all deferred via the "use_default" sentinel.
type CentralDefaults struct {
	MinLeverage            float64 `json:"min_leverage"`
	MinConfidence          float64 `json:"min_confidence"`
	MinRiskReward          float64 `json:"min_risk_reward"`
	MinSupportStrength     float64 `json:"min_support_strength"`
	MinResistanceStrength  float64 `json:"min_resistance_strength"`
	TargetCoverage         float64 `json:"target_coverage"`
	EvaluationCap          int     `json:"evaluation_cap"`
	PriceConsistencyPctMax float64 `json:"price_consistency_pct_max"`
}

type ProgressConfig struct {
	SnapshotDir string        `json:"snapshot_dir"`
	RedisTTL    time.Duration `json:"redis_ttl"`
}

func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orDefault(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orDefault(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", orDefaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", orDefault(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", orDefault(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", orDefaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", orDefaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", orDefaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", orDefaultDuration(cfg.AuthConfig.AccessTokenDuration, 15*time.Minute))

	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", orDefault(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", orDefault(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", orDefault(cfg.VaultConfig.SecretPath, "onboarding/provider-keys"))

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", orDefault(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", orDefaultInt(cfg.RedisConfig.PoolSize, 10))

	cfg.LedgerDBConfig = applyDBEnvOverrides(cfg.LedgerDBConfig, "LEDGER_DB", "onboarding_ledger")
	cfg.AnalysisDBConfig = applyDBEnvOverrides(cfg.AnalysisDBConfig, "ANALYSIS_DB", "onboarding_analysis")

	cfg.ProviderConfig.Identity = getEnvOrDefault("PROVIDER_IDENTITY", orDefault(cfg.ProviderConfig.Identity, "hyperliquid"))
	cfg.ProviderConfig.BaseURL = getEnvOrDefault("PROVIDER_BASE_URL", cfg.ProviderConfig.BaseURL)
	cfg.ProviderConfig.APIKeyPath = getEnvOrDefault("PROVIDER_API_KEY_PATH", cfg.ProviderConfig.APIKeyPath)

	cfg.WorkerConfig.MaxWorkers = getEnvIntOrDefault("WORKER_MAX_WORKERS", orDefaultInt(cfg.WorkerConfig.MaxWorkers, 8))
	cfg.WorkerConfig.CancelGraceWindow = getEnvDurationOrDefault("WORKER_CANCEL_GRACE_WINDOW", orDefaultDuration(cfg.WorkerConfig.CancelGraceWindow, 30*time.Second))

	cfg.ValidatorConfig.TotalBudget = getEnvDurationOrDefault("VALIDATOR_TOTAL_BUDGET", orDefaultDuration(cfg.ValidatorConfig.TotalBudget, 120*time.Second))
	cfg.ValidatorConfig.SymbolExistenceBudget = orDefaultDuration(cfg.ValidatorConfig.SymbolExistenceBudget, 10*time.Second)
	cfg.ValidatorConfig.ConnectionBudget = orDefaultDuration(cfg.ValidatorConfig.ConnectionBudget, 10*time.Second)
	cfg.ValidatorConfig.TradabilityBudget = orDefaultDuration(cfg.ValidatorConfig.TradabilityBudget, 10*time.Second)
	cfg.ValidatorConfig.DataQualityBudget = orDefaultDuration(cfg.ValidatorConfig.DataQualityBudget, 30*time.Second)
	cfg.ValidatorConfig.HistoricalReachBudget = orDefaultDuration(cfg.ValidatorConfig.HistoricalReachBudget, 30*time.Second)
	cfg.ValidatorConfig.RequiredHistoryDays = getEnvIntOrDefault("VALIDATOR_REQUIRED_HISTORY_DAYS", orDefaultInt(cfg.ValidatorConfig.RequiredHistoryDays, 90))
	cfg.ValidatorConfig.MinCompletenessPct = getEnvFloatOrDefault("VALIDATOR_MIN_COMPLETENESS_PCT", orDefaultFloat(cfg.ValidatorConfig.MinCompletenessPct, 95.0))
	cfg.ValidatorConfig.MaxCPUPercent = orDefaultFloat(cfg.ValidatorConfig.MaxCPUPercent, 85.0)
	cfg.ValidatorConfig.MaxMemPercent = orDefaultFloat(cfg.ValidatorConfig.MaxMemPercent, 85.0)
	cfg.ValidatorConfig.MinFreeDiskGiB = orDefaultFloat(cfg.ValidatorConfig.MinFreeDiskGiB, 2.0)
	if len(cfg.ValidatorConfig.AllowedExchanges) == 0 {
		cfg.ValidatorConfig.AllowedExchanges = []string{"hyperliquid", "gateio"}
	}

	cfg.CentralDefaults.MinLeverage = orDefaultFloat(cfg.CentralDefaults.MinLeverage, 2.0)
	cfg.CentralDefaults.MinConfidence = orDefaultFloat(cfg.CentralDefaults.MinConfidence, 0.3)
	cfg.CentralDefaults.MinRiskReward = orDefaultFloat(cfg.CentralDefaults.MinRiskReward, 1.2)
	cfg.CentralDefaults.MinSupportStrength = orDefaultFloat(cfg.CentralDefaults.MinSupportStrength, 0.5)
	cfg.CentralDefaults.MinResistanceStrength = orDefaultFloat(cfg.CentralDefaults.MinResistanceStrength, 0.5)
	cfg.CentralDefaults.TargetCoverage = orDefaultFloat(cfg.CentralDefaults.TargetCoverage, 0.80)
	cfg.CentralDefaults.EvaluationCap = orDefaultInt(cfg.CentralDefaults.EvaluationCap, 5000)
	cfg.CentralDefaults.PriceConsistencyPctMax = orDefaultFloat(cfg.CentralDefaults.PriceConsistencyPctMax, 0.05)

	cfg.ProgressConfig.SnapshotDir = getEnvOrDefault("PROGRESS_SNAPSHOT_DIR", orDefault(cfg.ProgressConfig.SnapshotDir, "./progress"))
	cfg.ProgressConfig.RedisTTL = orDefaultDuration(cfg.ProgressConfig.RedisTTL, time.Hour)
}

func applyDBEnvOverrides(db DatabaseConfig, prefix, defaultName string) DatabaseConfig {
	db.Host = getEnvOrDefault(prefix+"_HOST", orDefault(db.Host, "localhost"))
	db.Port = getEnvIntOrDefault(prefix+"_PORT", orDefaultInt(db.Port, 5432))
	db.User = getEnvOrDefault(prefix+"_USER", orDefault(db.User, "postgres"))
	db.Password = getEnvOrDefault(prefix+"_PASSWORD", db.Password)
	db.Database = getEnvOrDefault(prefix+"_NAME", orDefault(db.Database, defaultName))
	db.SSLMode = getEnvOrDefault(prefix+"_SSLMODE", orDefault(db.SSLMode, "disable"))
	return db
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func orDefaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultFloat(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultDuration(v, d time.Duration) time.Duration {
	if v == 0 {
		return d
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file with every
// central default made explicit.
func GenerateSampleConfig(filename string) error {
	cfg := Config{}
	applyEnvOverrides(&cfg)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ResolveThreshold implements the four-level resolution chain of §4.3/§9:
// user override -> strategy config -> timeframe config -> central defaults.
// Each candidate is a pointer so "absent" is representable; a candidate
// equal to UseDefault (when read from JSON as *string) is handled by the
// caller before values reach here as float64. This helper operates once all
// candidates have already been reduced to "is it a usable override or not".
func (cd CentralDefaults) ResolveThreshold(field string, candidates ...*float64) (float64, error) {
	for _, c := range candidates {
		if c != nil {
			return *c, nil
		}
	}
	switch field {
	case "min_leverage":
		return cd.MinLeverage, nil
	case "min_confidence":
		return cd.MinConfidence, nil
	case "min_risk_reward":
		return cd.MinRiskReward, nil
	case "min_support_strength":
		return cd.MinSupportStrength, nil
	case "min_resistance_strength":
		return cd.MinResistanceStrength, nil
	default:
		return 0, fmt.Errorf("no central default registered for threshold %q", field)
	}
}
