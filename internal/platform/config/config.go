package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	StorageDriver string
	JWTSecret     string
	JWTIssuer     string
	BaseCurrency  string
	LogLevel      slog.Level
	RateLimit     string // ulule format, e.g. "100-M"
	CORSOrigins   []string

	// Batch posting
	BatchConcurrency int
	BatchWorkers     int
	BatchSync        bool

	// Reconciliation auto-match defaults
	ReconMatchWindowDays int
	ReconAmountTolerance decimal.Decimal

	// Chart-of-accounts read cache
	AccountCacheSize int
	AccountCacheTTL  time.Duration

	MigrationsPath string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_ISSUER", "erp-ledger")
	v.SetDefault("BASE_CURRENCY", "USD")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("BATCH_CONCURRENCY", 4)
	v.SetDefault("BATCH_WORKERS", 2)
	v.SetDefault("BATCH_SYNC", false)
	v.SetDefault("RECON_MATCH_WINDOW_DAYS", 3)
	v.SetDefault("RECON_AMOUNT_TOLERANCE", "0")
	v.SetDefault("ACCOUNT_CACHE_SIZE", 1024)
	v.SetDefault("ACCOUNT_CACHE_TTL", "5m")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")

	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:          v.GetString("PGSQL_URL"),
		Port:                 v.GetString("PORT"),
		IsProduction:         v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:        v.GetBool("ENABLE_DB_CHECK"),
		StorageDriver:        strings.ToLower(v.GetString("STORAGE_DRIVER")),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTIssuer:            v.GetString("JWT_ISSUER"),
		BaseCurrency:         strings.ToUpper(v.GetString("BASE_CURRENCY")),
		RateLimit:            v.GetString("RATE_LIMIT"),
		BatchConcurrency:     v.GetInt("BATCH_CONCURRENCY"),
		BatchWorkers:         v.GetInt("BATCH_WORKERS"),
		BatchSync:            v.GetBool("BATCH_SYNC"),
		ReconMatchWindowDays: v.GetInt("RECON_MATCH_WINDOW_DAYS"),
		AccountCacheSize:     v.GetInt("ACCOUNT_CACHE_SIZE"),
		MigrationsPath:       v.GetString("MIGRATIONS_PATH"),
	}

	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET is the default insecure key. THIS IS NOT FOR PRODUCTION.")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		log.Printf("Warning: Invalid value for LOG_LEVEL ('%s'). Defaulting to info.\n", v.GetString("LOG_LEVEL"))
		cfg.LogLevel = slog.LevelInfo
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	tol, err := decimal.NewFromString(v.GetString("RECON_AMOUNT_TOLERANCE"))
	if err != nil || tol.IsNegative() {
		return nil, fmt.Errorf("invalid RECON_AMOUNT_TOLERANCE %q", v.GetString("RECON_AMOUNT_TOLERANCE"))
	}
	cfg.ReconAmountTolerance = tol

	ttlStr := v.GetString("ACCOUNT_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		ttl = 5 * time.Minute
		log.Printf("Warning: Invalid value for ACCOUNT_CACHE_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl.String())
	}
	cfg.AccountCacheTTL = ttl

	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if cfg.BatchWorkers < 0 {
		cfg.BatchWorkers = 0
	}
	if cfg.ReconMatchWindowDays < 0 {
		return nil, fmt.Errorf("invalid RECON_MATCH_WINDOW_DAYS %d", cfg.ReconMatchWindowDays)
	}

	return cfg, nil
}
